// Package hooks implements the compile-time-composed interceptor chain that
// the agent loop drives around every tool call and every turn: pre_tool_use,
// post_tool_use, on_stop, and on_text.
package hooks

import (
	"context"
	"encoding/json"
	"time"
)

// ToolDecisionKind is the outcome of a pre_tool_use callback.
type ToolDecisionKind int

const (
	// Allow lets the call proceed to the rest of the chain and, eventually,
	// the tool itself.
	Allow ToolDecisionKind = iota
	// Deny stops the call without aborting the turn; the tool registry never
	// sees it and the agent loop synthesizes an error tool result.
	Deny
	// Abort stops the call and fails the entire turn.
	Abort
)

func (k ToolDecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// ToolDecision is the result of a pre_tool_use callback.
type ToolDecision struct {
	Kind   ToolDecisionKind
	Reason string
}

// AllowDecision is the zero-value decision every Hook that does not care
// about pre_tool_use should return.
func AllowDecision() ToolDecision { return ToolDecision{Kind: Allow} }

// DenyDecision stops the call with a reason, without failing the turn.
func DenyDecision(reason string) ToolDecision { return ToolDecision{Kind: Deny, Reason: reason} }

// AbortDecision stops the call and fails the entire turn.
func AbortDecision(reason string) ToolDecision { return ToolDecision{Kind: Abort, Reason: reason} }

// PostDecisionKind is the outcome of a post_tool_use callback.
type PostDecisionKind int

const (
	// Keep passes the tool's own result (or error) through unchanged.
	Keep PostDecisionKind = iota
	// Replace substitutes the result content with Replacement, without
	// failing the turn.
	Replace
	// PostAbort fails the entire turn.
	PostAbort
)

// PostDecision is the result of a post_tool_use callback.
type PostDecision struct {
	Kind        PostDecisionKind
	Replacement string
	Reason      string
}

// KeepDecision is the zero-value decision every Hook that does not care
// about post_tool_use should return.
func KeepDecision() PostDecision { return PostDecision{Kind: Keep} }

// ReplaceDecision substitutes the tool result content seen by the model.
func ReplaceDecision(text string) PostDecision {
	return PostDecision{Kind: Replace, Replacement: text}
}

// AbortPostDecision fails the turn after a tool has already run.
func AbortPostDecision(reason string) PostDecision {
	return PostDecision{Kind: PostAbort, Reason: reason}
}

// PreToolCall is the input to a pre_tool_use callback.
type PreToolCall struct {
	Name         string
	Arguments    json.RawMessage
	Turn         int
	MessageCount int
}

// PostToolCall is the input to a post_tool_use callback.
type PostToolCall struct {
	Name      string
	Arguments json.RawMessage
	Result    string
	IsError   bool
	Err       error
	Duration  time.Duration
}

// StopOutcome is the Option<error> a hook's on_stop callback may return.
// A nil *StopOutcome is None: the turn's own outcome stands. A non-nil
// *StopOutcome is Some: it overrides the turn's outcome with Err, turning
// an otherwise-successful stop into a failure.
type StopOutcome struct {
	Err error
}

// Stopped builds a Some(err) outcome.
func Stopped(err error) *StopOutcome { return &StopOutcome{Err: err} }

// Hook is the interface a chain link implements. All four callbacks are
// part of the interface; BaseHook supplies no-op defaults so a concrete
// hook only needs to embed it and override what it cares about.
type Hook interface {
	// PreToolUse runs before a tool call is dispatched.
	PreToolUse(ctx context.Context, call PreToolCall) ToolDecision

	// PostToolUse runs after a tool call returns, successfully or not.
	PostToolUse(ctx context.Context, call PostToolCall) PostDecision

	// OnStop runs once when a turn ends, whatever the reason.
	OnStop(ctx context.Context, finalText string, turns int, reason string) *StopOutcome

	// OnText runs for every text chunk emitted during a turn.
	OnText(ctx context.Context, text string)
}

// BaseHook implements Hook with no-op defaults. Embed it in a concrete hook
// and override only the callbacks that hook cares about.
type BaseHook struct{}

func (BaseHook) PreToolUse(context.Context, PreToolCall) ToolDecision { return AllowDecision() }
func (BaseHook) PostToolUse(context.Context, PostToolCall) PostDecision {
	return KeepDecision()
}
func (BaseHook) OnStop(context.Context, string, int, string) *StopOutcome { return nil }
func (BaseHook) OnText(context.Context, string)                          {}

var _ Hook = BaseHook{}
