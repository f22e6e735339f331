package service

import (
	"strconv"

	"github.com/rotisserie/eris"

	"inventory-recon/internal/reconcile/model"
)

const (
	ExportConsolidated = "consolidated"
	ExportCleanedA     = "cleaned-a"
	ExportCleanedB     = "cleaned-b"
	ExportExact        = "exact"
	ExportUnmatchedA   = "unmatched-a"
	ExportUnmatchedB   = "unmatched-b"
	ExportFuzzy        = "fuzzy"
	ExportLog          = "log"
)

var ExportKinds = []string{
	ExportConsolidated, ExportCleanedA, ExportCleanedB, ExportExact,
	ExportUnmatchedA, ExportUnmatchedB, ExportFuzzy, ExportLog,
}

// Consolidate builds the final table. Only allowed once every stage is done.
func (s *Session) Consolidate() (model.Consolidated, error) {
	out, err := s.consolidated()
	if err != nil {
		return out, err
	}
	for _, w := range out.Warnings {
		s.logger.Warn().Str("code", w.Code).Str("sku", w.SKU).Msg(w.Message)
	}
	s.logger.Info().Int("rows", len(out.Rows)).Int("warnings", len(out.Warnings)).Msg("consolidated")
	return out, nil
}

// consolidated is Consolidate without the logging, for exports.
func (s *Session) consolidated() (model.Consolidated, error) {
	if s.state != model.StateDone {
		return model.Consolidated{}, eris.Wrapf(model.ErrNotDone, "state %s, %d pending", s.state, s.Pending())
	}
	return Consolidate(ConsolidateInput{A: s.a, B: s.b, Log: s.log}, s.opts), nil
}

// Export renders one of ExportKinds as a header and rows. Exact and unmatched
// exports reflect the datasets as they stand now.
func (s *Session) Export(kind string) ([]string, [][]string, error) {
	switch kind {
	case ExportConsolidated:
		out, err := s.consolidated()
		if err != nil {
			return nil, nil, err
		}
		rows := make([][]string, len(out.Rows))
		for i, r := range out.Rows {
			rows[i] = r.Values
		}
		return out.Columns, rows, nil

	case ExportCleanedA:
		h, rows := s.a.Table()
		return h, rows, nil
	case ExportCleanedB:
		h, rows := s.b.Table()
		return h, rows, nil

	case ExportExact:
		exact, _, _ := Partition(s.a, s.b)
		rows := make([][]string, len(exact))
		for i, m := range exact {
			rows[i] = []string{m.SKU, m.A.Quantity, m.B.Quantity}
		}
		return []string{"SKU", "Quantity A", "Quantity B"}, rows, nil

	case ExportUnmatchedA, ExportUnmatchedB:
		_, resA, resB := Partition(s.a, s.b)
		ds, res := s.a, resA
		if kind == ExportUnmatchedB {
			ds, res = s.b, resB
		}
		rows := make([][]string, len(res))
		for i, r := range res {
			row := make([]string, len(ds.Columns))
			for j, c := range ds.Columns {
				row[j], _ = ds.Value(r, c)
			}
			rows[i] = row
		}
		return append([]string(nil), ds.Columns...), rows, nil

	case ExportFuzzy:
		return s.fuzzyTable()
	case ExportLog:
		return s.logTable()
	}
	return nil, nil, eris.Errorf("unknown export %q", kind)
}

func (s *Session) fuzzyTable() ([]string, [][]string, error) {
	header := []string{"Left SKU", "Right SKU", "Similarity", "Scope", "Source", "Status", "Action", "Result SKU", "Result Quantity"}
	var rows [][]string
	row := func(c model.FuzzyCandidate, status string, res *model.Resolution) []string {
		r := []string{c.Left, c.Right, strconv.FormatFloat(c.Similarity*100, 'f', 2, 64), string(c.Scope), string(c.Source), status, "", "", ""}
		if res != nil {
			r[6], r[7], r[8] = string(res.Action), res.ResultSKU, res.ResultQuantity
		}
		return r
	}
	for i := range s.log {
		if fc, ok := s.log[i].Candidate.(model.FuzzyCandidate); ok {
			status := "resolved"
			if s.log[i].Skipped {
				status = "skipped"
			}
			rows = append(rows, row(fc, status, &s.log[i]))
		}
	}
	for _, fc := range s.fuzzy {
		rows = append(rows, row(fc, "pending", nil))
	}
	return header, rows, nil
}

func (s *Session) logTable() ([]string, [][]string, error) {
	header := []string{"Seq", "State", "Kind", "Candidate", "Action", "Result SKU", "Result Quantity", "Result Source", "Removed", "Skipped"}
	rows := make([][]string, len(s.log))
	for i, r := range s.log {
		rows[i] = []string{
			strconv.Itoa(r.Seq),
			r.State.String(),
			r.Candidate.Kind(),
			r.Candidate.Describe(),
			string(r.Action),
			r.ResultSKU,
			r.ResultQuantity,
			string(r.ResultSource),
			strconv.Itoa(r.Removed),
			strconv.FormatBool(r.Skipped),
		}
	}
	return header, rows, nil
}

// Summary reports where the session stands.
func (s *Session) Summary() model.Summary {
	sum := model.Summary{
		State:    s.state.String(),
		Pending:  s.Pending(),
		Resolved: len(s.log),
		RecordsA: len(s.a.Records),
		RecordsB: len(s.b.Records),
		Warnings: len(s.warnings),
	}
	if s.state >= model.StateCross {
		exact, resA, resB := Partition(s.a, s.b)
		sum.ExactMatches, sum.ResidueA, sum.ResidueB = len(exact), len(resA), len(resB)
	}
	return sum
}

// Inspection is a dry run of every detection stage over the data as it
// stands, without touching the queue. Cross candidates are computed before
// any intra-source cleanup, so they can differ from what the Cross stage
// later presents.
type Inspection struct {
	DuplicatesA model.DuplicateReport `json:"duplicatesA"`
	DuplicatesB model.DuplicateReport `json:"duplicatesB"`
	Cross       model.CrossResult     `json:"cross"`
}

func (s *Session) Inspect() Inspection {
	return Inspection{
		DuplicatesA: DetectDuplicates(s.a.Records, model.SourceA, s.scorer, s.opts.IntraThreshold),
		DuplicatesB: DetectDuplicates(s.b.Records, model.SourceB, s.scorer, s.opts.IntraThreshold),
		Cross: CrossMatch(s.a, s.b, s.scorer, Window{
			Low:       s.opts.CrossLow,
			High:      s.opts.CrossHigh,
			Inclusive: s.opts.CrossInclusive,
		}),
	}
}
