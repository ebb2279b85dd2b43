// Package tier implements the Tiered Model Group: ordered, budget-tracked
// fallback across models within a tier (Advanced, Balanced, Fast), so the
// agent loop can keep making progress as models exhaust their quotas.
package tier

import (
	"errors"
	"sync/atomic"
)

// ErrNoModelAvailable is returned when every model in a group, or every
// group in a TieredModels mapping, is exhausted.
var ErrNoModelAvailable = errors.New("no model available")

// BudgetKind identifies which budget a BudgetedModel enforces.
type BudgetKind int

const (
	// Unlimited never exhausts on its own; only MarkExhausted latches it.
	Unlimited BudgetKind = iota
	// Tokens exhausts once TokensUsed reaches the configured limit.
	Tokens
	// Cost exhausts once CostMicroUsed reaches the configured limit,
	// tracked in integer micro-USD to avoid float drift.
	Cost
)

// Budget describes the limit a BudgetedModel enforces, in the unit implied
// by Kind. Limit is ignored when Kind is Unlimited.
type Budget struct {
	Kind  BudgetKind
	Limit int64
}

// UnlimitedBudget returns a Budget that never exhausts from usage alone.
func UnlimitedBudget() Budget { return Budget{Kind: Unlimited} }

// TokenBudget returns a Budget that exhausts once total tokens used
// reaches limit.
func TokenBudget(limit int64) Budget { return Budget{Kind: Tokens, Limit: limit} }

// CostBudget returns a Budget that exhausts once total micro-USD spent
// reaches limitMicroUSD.
func CostBudget(limitMicroUSD int64) Budget { return Budget{Kind: Cost, Limit: limitMicroUSD} }

// Usage is the per-call accounting RecordUsage folds into a BudgetedModel's
// running counters.
type Usage struct {
	TotalTokens   int64
	CostMicroUSD  int64
}

// BudgetedModel pairs a model handle with a budget and monotonically
// increasing usage counters. Exhausted is a one-way latch: once set it
// only clears via an explicit Reset.
type BudgetedModel struct {
	handle string
	budget Budget

	tokensUsed    atomic.Int64
	costMicroUsed atomic.Int64
	exhausted     atomic.Bool
}

// NewBudgetedModel returns a BudgetedModel for handle under budget.
func NewBudgetedModel(handle string, budget Budget) *BudgetedModel {
	return &BudgetedModel{handle: handle, budget: budget}
}

// Handle returns the model handle this slot wraps (e.g. a provider/model
// name pair understood by the agent's LLMProvider).
func (m *BudgetedModel) Handle() string { return m.handle }

// TokensUsed returns the cumulative token count recorded via RecordUsage.
func (m *BudgetedModel) TokensUsed() int64 { return m.tokensUsed.Load() }

// CostMicroUsed returns the cumulative micro-USD cost recorded via
// RecordUsage.
func (m *BudgetedModel) CostMicroUsed() int64 { return m.costMicroUsed.Load() }

// Exhausted reports whether this model slot is currently exhausted.
func (m *BudgetedModel) Exhausted() bool { return m.exhausted.Load() }

// RecordUsage adds usage to the running counters and re-evaluates
// exhaustion against the configured budget. Returns true if this call
// caused the model to become newly exhausted.
func (m *BudgetedModel) RecordUsage(usage Usage) bool {
	tokens := m.tokensUsed.Add(usage.TotalTokens)
	cost := m.costMicroUsed.Add(usage.CostMicroUSD)

	switch m.budget.Kind {
	case Tokens:
		if tokens >= m.budget.Limit {
			return m.MarkExhausted()
		}
	case Cost:
		if cost >= m.budget.Limit {
			return m.MarkExhausted()
		}
	}
	return false
}

// MarkExhausted latches the exhausted flag, e.g. on an upstream quota
// error unrelated to the tracked budget counters. Returns true if this
// call transitioned the flag from false to true.
func (m *BudgetedModel) MarkExhausted() bool {
	return m.exhausted.CompareAndSwap(false, true)
}

// Reset clears the exhausted latch and zeroes the usage counters.
func (m *BudgetedModel) Reset() {
	m.tokensUsed.Store(0)
	m.costMicroUsed.Store(0)
	m.exhausted.Store(false)
}
