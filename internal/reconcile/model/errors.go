package model

import "github.com/rotisserie/eris"

var (
	// ErrInvalidRecord: empty SKU, or one that normalizes to nothing.
	ErrInvalidRecord = eris.New("invalid record")
	// ErrInvalidQuantity: a quantity that must be summed is not a number.
	ErrInvalidQuantity = eris.New("invalid quantity")
	// ErrMissingColumn: a required or expected column is absent.
	ErrMissingColumn = eris.New("missing column")
	// ErrSchemaMismatch: an overlay row lacks a template column.
	ErrSchemaMismatch = eris.New("schema mismatch")

	ErrInvalidAction  = eris.New("invalid action")
	ErrStaleCandidate = eris.New("candidate references a removed record")
	ErrQueueEmpty     = eris.New("no pending candidate")
	ErrNotDone        = eris.New("resolution is not finished")
	ErrUnknownState   = eris.New("unknown state")
	ErrBadTransition  = eris.New("state is not reachable from here")
	ErrInvalidOptions = eris.New("invalid options")
)
