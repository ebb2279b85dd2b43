package tier

import "sync/atomic"

// ModelGroup is an ordered sequence of BudgetedModel plus an atomic cursor.
// The cursor only ever advances: it names the smallest index of a
// non-exhausted model, or points past the end once every model in the
// group is exhausted.
type ModelGroup struct {
	models       []*BudgetedModel
	currentIndex atomic.Int64
}

// NewModelGroup returns a ModelGroup over models, in fallback order.
func NewModelGroup(models ...*BudgetedModel) *ModelGroup {
	return &ModelGroup{models: models}
}

// Len returns the number of models in the group.
func (g *ModelGroup) Len() int { return len(g.models) }

// Current returns the current non-exhausted model, advancing the cursor
// past any already-exhausted models it encounters along the way. Returns
// ErrNoModelAvailable once every model from the cursor onward is
// exhausted.
func (g *ModelGroup) Current() (*BudgetedModel, error) {
	for {
		idx := g.currentIndex.Load()
		if idx < 0 || int(idx) >= len(g.models) {
			return nil, ErrNoModelAvailable
		}
		m := g.models[idx]
		if !m.Exhausted() {
			return m, nil
		}
		next := idx + 1
		if int(next) >= len(g.models) {
			g.currentIndex.CompareAndSwap(idx, next)
			return nil, ErrNoModelAvailable
		}
		// Retry on CAS failure: another caller already advanced (or is
		// advancing) the cursor; re-read and re-evaluate from there.
		g.currentIndex.CompareAndSwap(idx, next)
	}
}

// RecordUsage records usage against the current model and attempts to
// advance the cursor if that usage exhausted it.
func (g *ModelGroup) RecordUsage(usage Usage) error {
	m, err := g.Current()
	if err != nil {
		return err
	}
	m.RecordUsage(usage)
	return nil
}

// MarkExhausted marks the current model exhausted (e.g. on an upstream
// quota error) and advances the cursor.
func (g *ModelGroup) MarkExhausted() error {
	m, err := g.Current()
	if err != nil {
		return err
	}
	m.MarkExhausted()
	return nil
}

// ResetAll clears every model's exhaustion latch and usage counters and
// rewinds the cursor to the first model.
func (g *ModelGroup) ResetAll() {
	for _, m := range g.models {
		m.Reset()
	}
	g.currentIndex.Store(0)
}

// Models returns the underlying models in fallback order. The returned
// slice must not be mutated.
func (g *ModelGroup) Models() []*BudgetedModel { return g.models }

// Tier identifies one of the three model quality/cost tiers a
// TieredModels mapping routes across.
type Tier string

const (
	Advanced Tier = "advanced"
	Balanced Tier = "balanced"
	Fast     Tier = "fast"
)

// TieredModels maps each Tier to its own ModelGroup. Tier selection
// itself is a policy decision made by the caller (the agent loop picks a
// tier up front for a turn); TieredModels only answers "what is the
// current model for this tier" and "advance past failures within it".
type TieredModels struct {
	groups map[Tier]*ModelGroup
}

// NewTieredModels builds a TieredModels mapping from the given groups.
// Tiers absent from groups simply have no current model and always
// report ErrNoModelAvailable.
func NewTieredModels(groups map[Tier]*ModelGroup) *TieredModels {
	if groups == nil {
		groups = make(map[Tier]*ModelGroup)
	}
	return &TieredModels{groups: groups}
}

// Group returns the ModelGroup for tier, or nil if the tier was never
// configured.
func (t *TieredModels) Group(tier Tier) *ModelGroup {
	return t.groups[tier]
}

// Current returns the current model for tier. If that tier is exhausted,
// the caller is expected to fall back to the next tier itself (tier
// fallback order is policy, not mechanism) — Current never crosses tiers.
func (t *TieredModels) Current(tier Tier) (*BudgetedModel, error) {
	group := t.groups[tier]
	if group == nil {
		return nil, ErrNoModelAvailable
	}
	return group.Current()
}

// CurrentAcrossTiers tries each tier in order and returns the first
// available model, or ErrNoModelAvailable if every tier is exhausted.
func (t *TieredModels) CurrentAcrossTiers(tiers ...Tier) (Tier, *BudgetedModel, error) {
	for _, tr := range tiers {
		if m, err := t.Current(tr); err == nil {
			return tr, m, nil
		}
	}
	return "", nil, ErrNoModelAvailable
}
