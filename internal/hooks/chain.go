package hooks

import "context"

// Chain is a right-nested pair of hooks: Head runs first, Tail runs after
// (subject to short-circuiting). A nil Tail behaves as a terminal no-op
// hook, so Dispatch never needs a nil check on the tail itself.
//
// Composition rules, evaluated recursively down the chain:
//
//   - pre_tool_use: Head runs; Allow falls through to Tail; Deny and Abort
//     short-circuit and Tail never sees the call.
//   - post_tool_use: Head runs; Keep falls through to Tail; Replace and
//     Abort short-circuit.
//   - on_stop: Head runs; a Some outcome short-circuits; None falls
//     through to Tail.
//   - on_text: every hook in the chain runs, unconditionally, in order.
type Chain struct {
	Head Hook
	Tail *Chain
}

// Compose builds a Chain from an ordered list of hooks. The first hook
// runs first on every callback; registration order is call order.
func Compose(hooks ...Hook) *Chain {
	var tail *Chain
	for i := len(hooks) - 1; i >= 0; i-- {
		tail = &Chain{Head: hooks[i], Tail: tail}
	}
	return tail
}

// PreToolUse evaluates the chain's pre_tool_use callbacks in order,
// short-circuiting on the first non-Allow decision.
func (c *Chain) PreToolUse(ctx context.Context, call PreToolCall) ToolDecision {
	if c == nil || c.Head == nil {
		return AllowDecision()
	}
	decision := c.Head.PreToolUse(ctx, call)
	if decision.Kind != Allow {
		return decision
	}
	return c.Tail.PreToolUse(ctx, call)
}

// PostToolUse evaluates the chain's post_tool_use callbacks in order,
// short-circuiting on the first non-Keep decision.
func (c *Chain) PostToolUse(ctx context.Context, call PostToolCall) PostDecision {
	if c == nil || c.Head == nil {
		return KeepDecision()
	}
	decision := c.Head.PostToolUse(ctx, call)
	if decision.Kind != Keep {
		return decision
	}
	return c.Tail.PostToolUse(ctx, call)
}

// OnStop evaluates the chain's on_stop callbacks in order, short-circuiting
// on the first Some outcome.
func (c *Chain) OnStop(ctx context.Context, finalText string, turns int, reason string) *StopOutcome {
	if c == nil || c.Head == nil {
		return nil
	}
	if outcome := c.Head.OnStop(ctx, finalText, turns, reason); outcome != nil {
		return outcome
	}
	return c.Tail.OnStop(ctx, finalText, turns, reason)
}

// OnText runs every hook in the chain, unconditionally, in order.
func (c *Chain) OnText(ctx context.Context, text string) {
	if c == nil || c.Head == nil {
		return
	}
	c.Head.OnText(ctx, text)
	c.Tail.OnText(ctx, text)
}

// Len reports how many hooks are composed in the chain.
func (c *Chain) Len() int {
	if c == nil || c.Head == nil {
		return 0
	}
	return 1 + c.Tail.Len()
}
