package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !eris.Is(err, errAborted) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
