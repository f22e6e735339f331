package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/utils"
)

// Session owns both working datasets and the resolution log for one
// reconciliation. It walks IntraA → IntraAFuzzy → IntraB → IntraBFuzzy →
// Cross → Done, building each stage's queue from the data as it stands on
// entry. Every Resolve retires exactly the head of the current queue.
//
// A Session is not safe for concurrent use.
type Session struct {
	ID      string
	Created time.Time

	opts   model.Options
	norm   Normalizer
	scorer Scorer
	logger zerolog.Logger
	now    func() time.Time

	a, b  *model.Dataset
	state model.State

	groups []model.DuplicateGroup
	fuzzy  []model.FuzzyCandidate
	cross  model.CrossResult

	log      []model.Resolution
	warnings []model.Warning
}

func NewSession(a, b *model.Dataset, opts model.Options, logger zerolog.Logger) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, eris.New("session needs both sources")
	}
	s := &Session{
		ID:     uuid.NewString(),
		opts:   opts,
		norm:   NewNormalizer(opts.NormalizePolicy),
		scorer: NewScorer(opts.SimilarityMetric),
		now:    time.Now,
		a:      a,
		b:      b,
	}
	s.Created = s.now()
	s.logger = logger.With().Str("session", s.ID).Logger()
	s.enter(model.StateIntraA)
	return s, nil
}

func (s *Session) State() model.State        { return s.state }
func (s *Session) Options() model.Options    { return s.opts }
func (s *Session) A() *model.Dataset         { return s.a }
func (s *Session) B() *model.Dataset         { return s.b }
func (s *Session) Cross() model.CrossResult  { return s.cross }
func (s *Session) Warnings() []model.Warning { return s.warnings }

func (s *Session) Log() []model.Resolution {
	return append([]model.Resolution(nil), s.log...)
}

// NoteWarnings attaches load-time warnings so they travel with the session.
func (s *Session) NoteWarnings(ws ...model.Warning) {
	s.warnings = append(s.warnings, ws...)
}

// Pending is the length of the current stage's queue.
func (s *Session) Pending() int { return len(s.groups) + len(s.fuzzy) }

// Queue returns the candidates still waiting in the current stage.
func (s *Session) Queue() []model.Candidate {
	out := make([]model.Candidate, 0, s.Pending())
	for _, g := range s.groups {
		out = append(out, g)
	}
	for _, c := range s.fuzzy {
		out = append(out, c)
	}
	return out
}

// Current is the candidate awaiting a decision.
func (s *Session) Current() (model.Candidate, bool) {
	switch {
	case len(s.groups) > 0:
		return s.groups[0], true
	case len(s.fuzzy) > 0:
		return s.fuzzy[0], true
	}
	return nil, false
}

// Stale reports whether a fuzzy candidate points at a SKU that an earlier
// decision already removed. Stale candidates accept only KEEP and IGNORE.
func (s *Session) Stale(c model.Candidate) bool {
	fc, ok := c.(model.FuzzyCandidate)
	if !ok {
		return false
	}
	left, right := s.sides(fc)
	return len(left) == 0 || len(right) == 0
}

func (s *Session) dataset(src model.Source) *model.Dataset {
	if src == model.SourceA {
		return s.a
	}
	return s.b
}

func (s *Session) sides(fc model.FuzzyCandidate) (left, right []*model.InventoryRecord) {
	if fc.Scope == model.ScopeCross {
		return s.a.ByRaw(fc.Left), s.b.ByRaw(fc.Right)
	}
	ds := s.dataset(fc.Source)
	return ds.ByKey(fc.Left), ds.ByKey(fc.Right)
}

// enter switches to st and builds its queue; empty stages are passed through.
func (s *Session) enter(st model.State) {
	for {
		s.state = st
		s.groups, s.fuzzy = nil, nil

		switch st {
		case model.StateIntraA, model.StateIntraB:
			src, _ := st.Source()
			s.groups = ExactGroups(s.dataset(src).Records, src)
		case model.StateIntraAFuzzy, model.StateIntraBFuzzy:
			src, _ := st.Source()
			s.fuzzy = FuzzyDuplicates(s.dataset(src).Records, src, s.scorer, s.opts.IntraThreshold)
		case model.StateCross:
			s.cross = CrossMatch(s.a, s.b, s.scorer, Window{
				Low:       s.opts.CrossLow,
				High:      s.opts.CrossHigh,
				Inclusive: s.opts.CrossInclusive,
			})
			s.fuzzy = append([]model.FuzzyCandidate(nil), s.cross.Candidates...)
			s.logger.Info().
				Int("exact", len(s.cross.Exact)).
				Int("residue_a", len(s.cross.ResidueA)).
				Int("residue_b", len(s.cross.ResidueB)).
				Int("candidates", len(s.cross.Candidates)).
				Msg("cross match")
		}

		s.logger.Info().Stringer("state", st).Int("pending", s.Pending()).Msg("enter state")
		if st == model.StateDone || s.Pending() > 0 {
			return
		}
		st++
	}
}

func (s *Session) pop() {
	if len(s.groups) > 0 {
		s.groups = s.groups[1:]
		return
	}
	if len(s.fuzzy) > 0 {
		s.fuzzy = s.fuzzy[1:]
	}
}

// Resolve applies d to the current candidate. On error nothing changes and
// the same candidate stays current.
func (s *Session) Resolve(d model.Decision) (model.Resolution, error) {
	c, ok := s.Current()
	if !ok {
		return model.Resolution{}, model.ErrQueueEmpty
	}
	switch d.Action {
	case model.ActionKeep, model.ActionMerge, model.ActionDelete, model.ActionIgnore:
	default:
		return model.Resolution{}, eris.Wrapf(model.ErrInvalidAction, "%q", d.Action)
	}

	var (
		res  model.Resolution
		err  error
		snap = snapshot(c)
	)
	switch cand := c.(type) {
	case model.DuplicateGroup:
		res, err = s.resolveGroup(cand, d)
	case model.FuzzyCandidate:
		if cand.Scope == model.ScopeCross {
			res, err = s.resolveCross(cand, d)
		} else {
			res, err = s.resolveIntraFuzzy(cand, d)
		}
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("candidate", c.Describe()).Str("action", string(d.Action)).Msg("decision rejected")
		return model.Resolution{}, err
	}

	res = s.record(snap, d.Action, res, false)
	s.pop()
	s.logger.Debug().
		Int("seq", res.Seq).
		Str("candidate", c.Describe()).
		Str("action", string(res.Action)).
		Str("result_sku", res.ResultSKU).
		Str("result_qty", res.ResultQuantity).
		Msg("resolved")

	if s.Pending() == 0 {
		s.enter(s.state + 1)
	}
	return res, nil
}

func (s *Session) record(c model.Candidate, a model.Action, res model.Resolution, skipped bool) model.Resolution {
	res.Seq = len(s.log) + 1
	res.State = s.state
	res.Candidate = c
	res.Action = a
	res.Skipped = skipped
	res.At = s.now()
	s.log = append(s.log, res)
	return res
}

// Skip retires the rest of the current stage as IGNORE, marked skipped, and
// moves on. It returns how many candidates were skipped.
func (s *Session) Skip() int {
	if s.state == model.StateDone {
		return 0
	}
	queue := s.Queue()
	for _, c := range queue {
		s.record(c, model.ActionIgnore, model.Resolution{}, true)
	}
	s.logger.Info().Stringer("state", s.state).Int("skipped", len(queue)).Msg("stage skipped")
	s.enter(s.state + 1)
	return len(queue)
}

// Reset returns to st, an earlier or the current stage, and rebuilds only
// that stage's queue from the current data. The log is kept.
func (s *Session) Reset(st model.State) error {
	if st < model.StateIntraA || st > model.StateDone {
		return eris.Wrapf(model.ErrUnknownState, "%d", int(st))
	}
	if st > s.state {
		return eris.Wrapf(model.ErrBadTransition, "%s from %s", st, s.state)
	}
	s.logger.Info().Stringer("from", s.state).Stringer("to", st).Msg("reset")
	if st < model.StateCross {
		s.cross = model.CrossResult{}
	}
	s.enter(st)
	return nil
}

func (s *Session) resolveGroup(g model.DuplicateGroup, d model.Decision) (model.Resolution, error) {
	ds := s.dataset(g.Source)
	switch d.Action {
	case model.ActionMerge:
		survivor, removed, err := s.merge(ds, g.Members, d.Target)
		if err != nil {
			return model.Resolution{}, err
		}
		return resultOf(survivor, ds.Source, ds.Remove(ids(removed)...)), nil

	case model.ActionDelete:
		if d.DeleteAll {
			return model.Resolution{Removed: ds.Remove(ids(g.Members)...)}, nil
		}
		if d.Survivor < 0 || d.Survivor >= len(g.Members) {
			return model.Resolution{}, eris.Wrapf(model.ErrInvalidAction, "survivor %d of %d members", d.Survivor, len(g.Members))
		}
		keep := g.Members[d.Survivor]
		var drop []*model.InventoryRecord
		for _, m := range g.Members {
			if m != keep {
				drop = append(drop, m)
			}
		}
		return resultOf(keep, ds.Source, ds.Remove(ids(drop)...)), nil
	}
	return model.Resolution{}, nil
}

func (s *Session) resolveIntraFuzzy(c model.FuzzyCandidate, d model.Decision) (model.Resolution, error) {
	if d.Action == model.ActionKeep || d.Action == model.ActionIgnore {
		return model.Resolution{}, nil
	}
	ds := s.dataset(c.Source)
	left, right := s.sides(c)
	if len(left) == 0 || len(right) == 0 {
		return model.Resolution{}, eris.Wrap(model.ErrStaleCandidate, c.Describe())
	}

	if d.Action == model.ActionMerge {
		target := strings.TrimSpace(d.Target)
		members := append(append([]*model.InventoryRecord(nil), left...), right...)
		if k, err := s.norm(target); err == nil && k == c.Right {
			members = append(append([]*model.InventoryRecord(nil), right...), left...)
		}
		survivor, removed, err := s.merge(ds, members, target)
		if err != nil {
			return model.Resolution{}, err
		}
		return resultOf(survivor, ds.Source, ds.Remove(ids(removed)...)), nil
	}

	if d.DeleteAll {
		return model.Resolution{Removed: ds.Remove(ids(append(left, right...))...)}, nil
	}
	keepRight, err := s.pickSide(d.Target, c.Left, c.Right, s.norm)
	if err != nil {
		return model.Resolution{}, err
	}
	keep, drop := left, right
	if keepRight {
		keep, drop = right, left
	}
	return resultOf(keep[0], ds.Source, ds.Remove(ids(drop)...)), nil
}

func (s *Session) resolveCross(c model.FuzzyCandidate, d model.Decision) (model.Resolution, error) {
	if d.Action == model.ActionKeep || d.Action == model.ActionIgnore {
		return model.Resolution{}, nil
	}
	left, right := s.sides(c)
	if len(left) == 0 || len(right) == 0 {
		return model.Resolution{}, eris.Wrap(model.ErrStaleCandidate, c.Describe())
	}
	if d.Action == model.ActionDelete && d.DeleteAll {
		n := s.a.Remove(ids(left[:1])...) + s.b.Remove(ids(right[:1])...)
		return model.Resolution{Removed: n}, nil
	}

	same := func(v string) (string, error) { return v, nil }
	keepRight := false
	if d.Action == model.ActionMerge {
		keepRight = strings.TrimSpace(d.Target) == c.Right
	} else {
		var err error
		if keepRight, err = s.pickSide(d.Target, c.Left, c.Right, same); err != nil {
			return model.Resolution{}, err
		}
	}

	keepDS, dropDS := s.a, s.b
	keep, drop := left[0], right[0]
	if keepRight {
		keepDS, dropDS = s.b, s.a
		keep, drop = right[0], left[0]
	}

	if d.Action == model.ActionMerge {
		target := strings.TrimSpace(d.Target)
		for _, r := range dropDS.ByRaw(target) {
			if r != drop {
				return model.Resolution{}, eris.Wrapf(model.ErrInvalidAction, "target %q already exists in %s row %d", target, dropDS.Source, r.Row)
			}
		}
		survivor, _, err := s.merge(keepDS, []*model.InventoryRecord{keep, drop}, d.Target)
		if err != nil {
			return model.Resolution{}, err
		}
		return resultOf(survivor, keepDS.Source, dropDS.Remove(drop.ID)), nil
	}
	return resultOf(keep, keepDS.Source, dropDS.Remove(drop.ID)), nil
}

// pickSide reports whether target names the right side of a pair. An empty
// target keeps the left side.
func (s *Session) pickSide(target, left, right string, key Normalizer) (bool, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return false, nil
	}
	k, err := key(target)
	if err != nil {
		return false, err
	}
	switch k {
	case left:
		return false, nil
	case right:
		return true, nil
	}
	return false, eris.Wrapf(model.ErrInvalidAction, "target %q is neither %q nor %q", target, left, right)
}

// merge folds members into one survivor carrying target as its SKU and the
// sum of all member quantities. members[0] survives unless another member
// already carries target verbatim. It validates everything before touching
// any record and returns the members the caller must remove.
func (s *Session) merge(ds *model.Dataset, members []*model.InventoryRecord, target string) (*model.InventoryRecord, []*model.InventoryRecord, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		target = members[0].SkuRaw
	}
	key, err := s.norm(target)
	if err != nil {
		return nil, nil, err
	}
	if clash := collides(ds, members, key); clash != nil {
		return nil, nil, eris.Wrapf(model.ErrInvalidAction, "target %q collides with %s row %d", target, ds.Source, clash.Row)
	}

	total, found, err := sumQuantities(members)
	if err != nil {
		return nil, nil, err
	}

	survivor := members[0]
	for _, m := range members {
		if m.SkuRaw == target {
			survivor = m
			break
		}
	}
	var removed []*model.InventoryRecord
	for _, m := range members {
		if m != survivor {
			removed = append(removed, m)
		}
	}

	survivor.SkuRaw = target
	survivor.SkuKey = key
	if found {
		survivor.Quantity = utils.FormatQuantity(total)
	}
	return survivor, removed, nil
}

// collides returns a record of ds outside members that already normalizes to
// key. Keys the members carry themselves are never a collision.
func collides(ds *model.Dataset, members []*model.InventoryRecord, key string) *model.InventoryRecord {
	own := make(map[*model.InventoryRecord]struct{}, len(members))
	for _, m := range members {
		if m.SkuKey == key {
			return nil
		}
		own[m] = struct{}{}
	}
	for _, r := range ds.ByKey(key) {
		if _, ok := own[r]; !ok {
			return r
		}
	}
	return nil
}

// sumQuantities adds the members' quantities. Blank cells add nothing;
// found is false when every cell was blank.
func sumQuantities(members []*model.InventoryRecord) (total decimal.Decimal, found bool, err error) {
	total = decimal.Zero
	for _, m := range members {
		v, ok, err := utils.ParseQuantity(m.Quantity)
		if err != nil {
			return decimal.Zero, false, eris.Wrapf(model.ErrInvalidQuantity, "%s row %d: %q", m.SkuRaw, m.Row, m.Quantity)
		}
		if ok {
			total = total.Add(v)
			found = true
		}
	}
	return total, found, nil
}

// snapshot copies group members so the log keeps them as they were decided.
func snapshot(c model.Candidate) model.Candidate {
	g, ok := c.(model.DuplicateGroup)
	if !ok {
		return c
	}
	members := make([]*model.InventoryRecord, len(g.Members))
	for i, m := range g.Members {
		cp := *m
		members[i] = &cp
	}
	g.Members = members
	return g
}

func resultOf(r *model.InventoryRecord, src model.Source, removed int) model.Resolution {
	return model.Resolution{
		ResultSKU:      r.SkuRaw,
		ResultQuantity: r.Quantity,
		ResultSource:   src,
		Removed:        removed,
	}
}

func ids(rs []*model.InventoryRecord) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
