package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/reconcile/service"
)

var errAborted = eris.New("aborted by operator")

const promptHelp = `k            keep both / all
m [sku]      merge, optionally under a new sku
d [n|sku]    delete all but member n or the named sku (groups, first member
             when omitted) or all but the named side (pairs)
d all        delete every record of the candidate
i            ignore
s            skip the rest of this stage
r <state>    go back to IntraA, IntraAFuzzy, IntraB, IntraBFuzzy or Cross
q            quit without writing anything`

// interact reads one decision per line until the session is done.
func interact(s *service.Session, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		c, ok := s.Current()
		if !ok {
			return nil
		}
		fmt.Fprint(out, renderCandidate(s, c))
		fmt.Fprintf(out, "[%s, %d pending] k/m/d/i/s/r/q, ? for help > ", s.State(), s.Pending())
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return eris.Wrap(err, "read answer")
			}
			return errAborted
		}

		verb, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(verb) {
		case "":
			continue
		case "?", "h", "help":
			fmt.Fprintln(out, promptHelp)
			continue
		case "q", "quit":
			return errAborted
		case "s", "skip":
			fmt.Fprintf(out, "skipped %d\n", s.Skip())
			continue
		case "r", "reset":
			st, err := model.ParseState(arg)
			if err == nil {
				err = s.Reset(st)
			}
			if err != nil {
				fmt.Fprintln(out, "error:", err)
			}
			continue
		}

		act, err := model.ParseAction(verb)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		res, err := s.Resolve(decisionFor(c, act, arg))
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		fmt.Fprintf(out, "#%d %s", res.Seq, res.Action)
		if res.ResultSKU != "" {
			fmt.Fprintf(out, " -> %s qty %s", res.ResultSKU, res.ResultQuantity)
		}
		fmt.Fprintf(out, ", %d removed\n\n", res.Removed)
	}
}

// decisionFor turns a typed answer into a Decision. Group members are
// numbered from 1 on screen; a survivor that names no member is left out of
// range so the session rejects it.
func decisionFor(c model.Candidate, act model.Action, arg string) model.Decision {
	d := model.Decision{Action: act}
	switch act {
	case model.ActionMerge:
		d.Target = arg
	case model.ActionDelete:
		if strings.EqualFold(arg, "all") {
			d.DeleteAll = true
			break
		}
		g, isGroup := c.(model.DuplicateGroup)
		if !isGroup {
			d.Target = arg
			break
		}
		d.Survivor = -1
		if arg == "" {
			d.Survivor = 0
			break
		}
		if n, err := strconv.Atoi(arg); err == nil {
			d.Survivor = n - 1
			break
		}
		for i, m := range g.Members {
			if m.SkuRaw == arg {
				d.Survivor = i
				break
			}
		}
	}
	return d
}
