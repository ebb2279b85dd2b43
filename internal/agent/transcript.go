package agent

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// maxTranscriptResultLines is the number of lines a tool result is
// truncated to before being written to the transcript.
const maxTranscriptResultLines = 200

// Transcript is an append-only markdown writer placed alongside an agent's
// workspace so it can recover its own history after context compaction.
// It records the conversational flow (user turns, assistant text, tool
// invocations with brief results) but omits internal details like
// reasoning tokens or provider metadata.
type Transcript struct {
	mu   sync.Mutex
	path string
}

// NewTranscript creates a writer appending to path. The file is created on
// first write if it doesn't already exist.
func NewTranscript(path string) *Transcript {
	return &Transcript{path: path}
}

// Path returns the transcript file's path.
func (t *Transcript) Path() string {
	return t.path
}

// WriteUserMessage appends a "## User" section.
func (t *Transcript) WriteUserMessage(content string) {
	t.append(fmt.Sprintf("\n## User\n\n%s\n", content))
}

// WriteAssistantText appends a "## Assistant" section. A no-op for empty
// text, since assistant turns that only call tools produce no prose.
func (t *Transcript) WriteAssistantText(content string) {
	if content == "" {
		return
	}
	t.append(fmt.Sprintf("\n## Assistant\n\n%s\n", content))
}

// WriteToolCall appends a "### Tool: <name>" section with the invocation
// rendered as a fenced code block.
func (t *Transcript) WriteToolCall(name, command string) {
	t.append(fmt.Sprintf("\n### Tool: %s\n\n```\n%s\n```\n", name, command))
}

// WriteToolResult appends the tool's outcome as a single line, truncated to
// maxTranscriptResultLines, marking errors distinctly from successes.
func (t *Transcript) WriteToolResult(name string, output string, isError bool) {
	truncated := truncateLines(output, maxTranscriptResultLines)
	if isError {
		t.append(fmt.Sprintf("-> %s (error): %s\n", name, truncated))
		return
	}
	t.append(fmt.Sprintf("-> %s: %s\n", name, truncated))
}

// WriteCompactionMarker appends a marker noting that context was compacted.
// It deliberately excludes the summary itself so the model knows
// information was lost and should actively recover from files or by
// re-reading the transcript, rather than trusting a possibly-stale digest.
func (t *Transcript) WriteCompactionMarker() {
	t.append("\n---\n\n" +
		"*[Context was compacted here. Earlier messages were summarized and removed. " +
		"Details may be missing -- recover from files or re-read this transcript if needed.]*\n\n" +
		"---\n\n")
}

// append writes content to the transcript file. Failures are logged and
// swallowed: a transcript is a recovery aid, not part of the conversation's
// source of truth, so it must never fail a turn.
func (t *Transcript) append(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("transcript write failed", "path", t.path, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		slog.Warn("transcript write failed", "path", t.path, "error", err)
	}
}

func truncateLines(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	omitted := len(lines) - maxLines
	return fmt.Sprintf("%s\n... (%d lines omitted)", strings.Join(lines[:maxLines], "\n"), omitted)
}
