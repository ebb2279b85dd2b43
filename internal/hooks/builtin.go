package hooks

import (
	"context"
	"log/slog"
	"strings"
)

// LoggingHook logs every pre_tool_use, post_tool_use, and on_stop event at
// debug level. It never denies or replaces anything; it exists purely as
// the chain's observability tap, the way a production deployment would
// wire one in ahead of any policy hooks.
type LoggingHook struct {
	BaseHook
	Logger *slog.Logger
}

// NewLoggingHook returns a LoggingHook bound to logger. If logger is nil,
// slog.Default() is used.
func NewLoggingHook(logger *slog.Logger) *LoggingHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHook{Logger: logger}
}

func (h *LoggingHook) PreToolUse(_ context.Context, call PreToolCall) ToolDecision {
	h.Logger.Debug("pre_tool_use", "tool", call.Name, "turn", call.Turn, "messages", call.MessageCount)
	return AllowDecision()
}

func (h *LoggingHook) PostToolUse(_ context.Context, call PostToolCall) PostDecision {
	h.Logger.Debug("post_tool_use", "tool", call.Name, "is_error", call.IsError, "duration", call.Duration)
	return KeepDecision()
}

func (h *LoggingHook) OnStop(_ context.Context, finalText string, turns int, reason string) *StopOutcome {
	h.Logger.Debug("on_stop", "turns", turns, "reason", reason, "final_text_len", len(finalText))
	return nil
}

var _ Hook = (*LoggingHook)(nil)

// DenylistHook denies or aborts tool calls whose name matches one of a set
// of glob patterns ("*" wildcard only, matched with MatchToolPattern).
// Patterns listed in Abort fail the whole turn; patterns listed in Deny
// only fail that one call.
type DenylistHook struct {
	BaseHook
	Deny  []string
	Abort []string
}

func (h *DenylistHook) PreToolUse(_ context.Context, call PreToolCall) ToolDecision {
	for _, pattern := range h.Abort {
		if MatchToolPattern(pattern, call.Name) {
			return AbortDecision("tool " + call.Name + " matches abort pattern " + pattern)
		}
	}
	for _, pattern := range h.Deny {
		if MatchToolPattern(pattern, call.Name) {
			return DenyDecision("tool " + call.Name + " matches deny pattern " + pattern)
		}
	}
	return AllowDecision()
}

var _ Hook = (*DenylistHook)(nil)

// MatchToolPattern reports whether name matches pattern, where pattern may
// contain "*" as a wildcard matching any run of characters (including
// none). A bare "*" matches everything.
func MatchToolPattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}
	parts := strings.Split(pattern, "*")
	if parts[0] != "" && !strings.HasPrefix(name, parts[0]) {
		return false
	}
	last := len(parts) - 1
	if parts[last] != "" && !strings.HasSuffix(name, parts[last]) {
		return false
	}
	cursor := 0
	if parts[0] != "" {
		cursor = len(parts[0])
	}
	for i := 1; i < last; i++ {
		part := parts[i]
		if part == "" {
			continue
		}
		idx := strings.Index(name[cursor:], part)
		if idx < 0 {
			return false
		}
		cursor += idx + len(part)
	}
	return true
}
