package context

import (
	"context"
	"regexp"
	"strings"

	"github.com/agentcore/agentcore/pkg/models"
)

// CompressionStrategy selects how a conversation's history is kept within
// budget before each provider call.
type CompressionStrategy string

const (
	// StrategyUnlimited never compresses; the provider is left to reject
	// oversized requests.
	StrategyUnlimited CompressionStrategy = "unlimited"
	// StrategySlidingWindow drains the oldest messages once the recent
	// window exceeds its configured size.
	StrategySlidingWindow CompressionStrategy = "sliding_window"
	// StrategySmart runs token-estimate-driven multi-phase compression.
	StrategySmart CompressionStrategy = "smart"
)

// CompressorConfig tunes the Smart and SlidingWindow strategies. The char/4
// token estimate and the 30000-char budget match PackOptions' defaults,
// scaled by TriggerThreshold/EmergencyThreshold.
type CompressorConfig struct {
	Strategy CompressionStrategy

	// WindowSize is the max recent-message count for StrategySlidingWindow.
	WindowSize int

	// ContextWindowChars is the approximate char budget of the full model
	// context (chars, not tokens; char/4 is the token estimate used
	// throughout this package).
	ContextWindowChars int

	// TriggerThreshold is the fraction of ContextWindowChars above which
	// Smart compression activates. Default 0.7.
	TriggerThreshold float64

	// EmergencyThreshold is the fraction above which Smart compression uses
	// more aggressive settings. Default 0.9.
	EmergencyThreshold float64

	// PreserveRecent is how many trailing messages Smart compression never
	// touches. Default 10; halved at the emergency threshold.
	PreserveRecent int

	// MaxToolResultChars truncates individual tool result content,
	// matching PackOptions.MaxToolResultChars. Default 6000.
	MaxToolResultChars int

	// MaxSummaryLength bounds the generated summary's length in chars.
	MaxSummaryLength int

	// MaxPreservedItems bounds how many file paths / error lines / shell
	// commands are kept per category during extraction. Default 20.
	MaxPreservedItems int
}

// DefaultCompressorConfig returns the Smart strategy with the packer
// budget numbers.
func DefaultCompressorConfig() CompressorConfig {
	return CompressorConfig{
		Strategy:           StrategySmart,
		WindowSize:         60,
		ContextWindowChars: 30000,
		TriggerThreshold:   0.7,
		EmergencyThreshold: 0.9,
		PreserveRecent:     10,
		MaxToolResultChars: 6000,
		MaxSummaryLength:   2000,
		MaxPreservedItems:  20,
	}
}

func (c CompressorConfig) sanitized() CompressorConfig {
	defaults := DefaultCompressorConfig()
	if c.Strategy == "" {
		c.Strategy = defaults.Strategy
	}
	if c.WindowSize <= 0 {
		c.WindowSize = defaults.WindowSize
	}
	if c.ContextWindowChars <= 0 {
		c.ContextWindowChars = defaults.ContextWindowChars
	}
	if c.TriggerThreshold <= 0 {
		c.TriggerThreshold = defaults.TriggerThreshold
	}
	if c.EmergencyThreshold <= 0 {
		c.EmergencyThreshold = defaults.EmergencyThreshold
	}
	if c.PreserveRecent <= 0 {
		c.PreserveRecent = defaults.PreserveRecent
	}
	if c.MaxToolResultChars <= 0 {
		c.MaxToolResultChars = defaults.MaxToolResultChars
	}
	if c.MaxSummaryLength <= 0 {
		c.MaxSummaryLength = defaults.MaxSummaryLength
	}
	if c.MaxPreservedItems <= 0 {
		c.MaxPreservedItems = defaults.MaxPreservedItems
	}
	return c
}

// Compressor keeps a conversation's message history within the model's
// context budget, using one of three strategies selected per conversation.
type Compressor struct {
	cfg      CompressorConfig
	provider SummaryProvider
}

// NewCompressor builds a Compressor. provider may be nil for
// StrategyUnlimited/StrategySlidingWindow, which never summarize.
func NewCompressor(cfg CompressorConfig, provider SummaryProvider) *Compressor {
	return &Compressor{cfg: cfg.sanitized(), provider: provider}
}

// ContextWindowChars returns the char budget this compressor was configured
// with, for callers (e.g. pre-compression pruning) that need to reason
// about the same budget the Smart strategy estimates against.
func (c *Compressor) ContextWindowChars() int {
	return c.cfg.ContextWindowChars
}

// Maintain applies the configured strategy to history, returning the
// (possibly shortened) history to use for the next provider call. It is
// invoked before every turn; Unlimited and an under-threshold Smart check
// are both cheap no-ops.
func (c *Compressor) Maintain(ctx context.Context, history []*models.Message) ([]*models.Message, error) {
	switch c.cfg.Strategy {
	case StrategySlidingWindow:
		return c.slidingWindow(history), nil
	case StrategySmart:
		return c.smart(ctx, history)
	default:
		return history, nil
	}
}

func (c *Compressor) slidingWindow(history []*models.Message) []*models.Message {
	if len(history) <= c.cfg.WindowSize {
		return history
	}
	return history[len(history)-c.cfg.WindowSize:]
}

// estimateChars sums content.len()/4-equivalent char counts across all
// messages (the char estimate itself, not yet divided by 4; fraction-of-
// window comparisons use chars directly against ContextWindowChars, which
// is already expressed in chars).
func estimateChars(history []*models.Message) int {
	total := 0
	for _, m := range history {
		if m == nil {
			continue
		}
		total += len(m.Content)
		for _, tr := range m.ToolResults {
			total += len(tr.Content)
		}
	}
	return total
}

// truncateToolResults returns m unchanged, or a shallow copy with
// over-budget tool result content cut down to maxChars, mirroring
// Packer.truncateToolResults.
func truncateToolResults(m *models.Message, maxChars int) *models.Message {
	needsTruncation := false
	for _, tr := range m.ToolResults {
		if len(tr.Content) > maxChars {
			needsTruncation = true
			break
		}
	}
	if !needsTruncation {
		return m
	}

	clone := *m
	clone.ToolResults = make([]models.ToolResult, len(m.ToolResults))
	for i, tr := range m.ToolResults {
		if len(tr.Content) > maxChars {
			tr.Content = tr.Content[:maxChars] + "...[truncated]"
		}
		clone.ToolResults[i] = tr
	}
	return &clone
}

func (c *Compressor) smart(ctx context.Context, history []*models.Message) ([]*models.Message, error) {
	total := estimateChars(history)
	fraction := float64(total) / float64(c.cfg.ContextWindowChars)
	if fraction < c.cfg.TriggerThreshold {
		return history, nil
	}

	preserveRecent := c.cfg.PreserveRecent
	if fraction >= c.cfg.EmergencyThreshold {
		preserveRecent = preserveRecent / 2
		if preserveRecent < 1 {
			preserveRecent = 1
		}
	}
	if preserveRecent >= len(history) {
		return history, nil
	}

	recent := history[len(history)-preserveRecent:]
	older := history[:len(history)-preserveRecent]

	stale := identifyStaleToolCalls(older)
	preserved := extractPreservedContent(older, c.cfg.MaxPreservedItems)

	var toSummarize []*models.Message
	for i, m := range older {
		if stale[i] {
			continue
		}
		toSummarize = append(toSummarize, truncateToolResults(m, c.cfg.MaxToolResultChars))
	}
	if len(toSummarize) == 0 {
		return history, nil
	}

	if c.provider == nil {
		// Fail-safe: no summarizer configured, leave history untouched.
		return history, nil
	}

	if preserved != "" {
		toSummarize = append([]*models.Message{{Role: models.RoleSystem, Content: preserved}}, toSummarize...)
	}

	summaryText, err := c.provider.Summarize(ctx, toSummarize, c.cfg.MaxSummaryLength)
	if err != nil {
		// Fail-safe: original messages remain; caller may retry next turn
		// or fall through to provider-level truncation.
		return history, nil
	}

	summaryMsg := &models.Message{
		Role:    models.RoleSystem,
		Content: summaryText,
		Metadata: map[string]any{
			SummaryMetadataKey: true,
		},
	}

	result := make([]*models.Message, 0, 1+len(recent))
	result = append(result, summaryMsg)
	result = append(result, recent...)
	return result, nil
}

// identifyStaleToolCalls marks messages whose only content is a trivial
// tool acknowledgment, or a file-read whose path was later written/edited
// by a subsequent message in the same slice.
func identifyStaleToolCalls(messages []*models.Message) map[int]bool {
	stale := make(map[int]bool)
	writtenPaths := collectWrittenPaths(messages)

	for i, m := range messages {
		if m == nil || m.Role != models.RoleTool {
			continue
		}
		for _, tr := range m.ToolResults {
			if isTrivialAck(tr.Content) {
				stale[i] = true
				break
			}
		}
		if stale[i] {
			continue
		}
		if path, ok := readToolPath(m); ok {
			if writtenPaths[path] {
				stale[i] = true
			}
		}
	}
	return stale
}

var trivialAckMarkers = []string{"ok", "success", "done", "file written", "file saved", "completed"}

func isTrivialAck(content string) bool {
	if len(content) >= 50 {
		return false
	}
	lower := strings.ToLower(content)
	for _, marker := range trivialAckMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

var pathLikePattern = regexp.MustCompile(`"(?:path|file|filename|file_path)"\s*:\s*"([^"]+)"`)

// readToolPath extracts a "path"-shaped argument from a tool call whose
// name suggests a read operation.
func readToolPath(m *models.Message) (string, bool) {
	for _, tc := range m.ToolCalls {
		if !strings.Contains(strings.ToLower(tc.Name), "read") {
			continue
		}
		if match := pathLikePattern.FindStringSubmatch(string(tc.Input)); match != nil {
			return match[1], true
		}
	}
	return "", false
}

// collectWrittenPaths scans tool calls whose name suggests a write/edit
// operation and returns the set of paths they touched.
func collectWrittenPaths(messages []*models.Message) map[string]bool {
	written := make(map[string]bool)
	for _, m := range messages {
		if m == nil {
			continue
		}
		for _, tc := range m.ToolCalls {
			name := strings.ToLower(tc.Name)
			if !strings.Contains(name, "write") && !strings.Contains(name, "edit") {
				continue
			}
			if match := pathLikePattern.FindStringSubmatch(string(tc.Input)); match != nil {
				written[match[1]] = true
			}
		}
	}
	return written
}

var (
	filePathPattern = regexp.MustCompile(`(?:/[\w.\-]+)+\.[A-Za-z0-9]{1,8}|\b[\w.\-]+/[\w./\-]+\.(?:go|py|js|ts|tsx|jsx|json|yaml|yml|md|txt|rs|java|rb|sh)\b`)
	errorPattern    = regexp.MustCompile(`(?i).*(?:error|failed|panic|exception).*`)
	commandPattern  = regexp.MustCompile(`^\s*(?:\$\s+|sudo |git |go |npm |yarn |curl |docker |kubectl )\S.*`)
)

// extractPreservedContent scans non-recent messages and collects file
// paths, error lines, and shell commands, bounded and deduplicated, as a
// block to prepend ahead of the summarization dialogue.
func extractPreservedContent(messages []*models.Message, maxItems int) string {
	paths := newBoundedSet(maxItems)
	errs := newBoundedSet(maxItems)
	cmds := newBoundedSet(maxItems)

	for _, m := range messages {
		if m == nil {
			continue
		}
		for _, line := range strings.Split(m.Content, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if filePathPattern.MatchString(trimmed) {
				for _, p := range filePathPattern.FindAllString(trimmed, -1) {
					paths.add(p)
				}
			}
			if errorPattern.MatchString(trimmed) {
				errs.add(trimmed)
			}
			if commandPattern.MatchString(trimmed) {
				cmds.add(trimmed)
			}
		}
	}

	if paths.empty() && errs.empty() && cmds.empty() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Preserved context from earlier in the conversation:\n")
	if !paths.empty() {
		sb.WriteString("Files referenced:\n")
		for _, p := range paths.items {
			sb.WriteString("- " + p + "\n")
		}
	}
	if !errs.empty() {
		sb.WriteString("Errors encountered:\n")
		for _, e := range errs.items {
			sb.WriteString("- " + e + "\n")
		}
	}
	if !cmds.empty() {
		sb.WriteString("Commands run:\n")
		for _, c := range cmds.items {
			sb.WriteString("- " + c + "\n")
		}
	}
	return sb.String()
}

type boundedSet struct {
	seen  map[string]bool
	items []string
	max   int
}

func newBoundedSet(max int) *boundedSet {
	return &boundedSet{seen: make(map[string]bool), max: max}
}

func (b *boundedSet) add(v string) {
	if b.seen[v] || len(b.items) >= b.max {
		return
	}
	b.seen[v] = true
	b.items = append(b.items, v)
}

func (b *boundedSet) empty() bool { return len(b.items) == 0 }
