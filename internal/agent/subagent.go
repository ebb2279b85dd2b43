package agent

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentcore/agentcore/internal/agent/subagents"
)

// SubagentDefinition is a subagent loaded from a markdown file of the form:
//
//	# subagent-id
//
//	One sentence description.
//
//	---
//
//	System prompt content here...
//
// The first "# " heading is the ID, the first non-empty, non-heading line
// before the "---" divider is the description, and everything after the
// divider is the system prompt.
type SubagentDefinition struct {
	ID            string
	Description   string
	SystemPrompt  string
	MaxIterations int
}

// defaultSubagentMaxIterations is used when a definition doesn't specify one;
// subagents run a bounded sub-loop and should not be able to out-iterate
// their parent indefinitely.
const defaultSubagentMaxIterations = 20

// ParseSubagentDefinition parses a subagent definition from markdown
// content. It returns false if content doesn't match the expected format.
func ParseSubagentDefinition(content string) (SubagentDefinition, bool) {
	content = strings.TrimSpace(content)

	var id string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			id = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
	}
	if id == "" {
		return SubagentDefinition{}, false
	}

	parts := strings.SplitN(content, "\n---", 2)
	if len(parts) != 2 {
		return SubagentDefinition{}, false
	}
	header := parts[0]
	systemPrompt := strings.TrimSpace(parts[1])

	var description string
	skippingHeading := true
	for _, line := range strings.Split(header, "\n") {
		if skippingHeading && (strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "") {
			continue
		}
		skippingHeading = false
		if strings.TrimSpace(line) != "" {
			description = strings.TrimSpace(line)
			break
		}
	}
	if description == "" {
		return SubagentDefinition{}, false
	}

	return SubagentDefinition{
		ID:            id,
		Description:   description,
		SystemPrompt:  systemPrompt,
		MaxIterations: defaultSubagentMaxIterations,
	}, true
}

// LoadSubagentFile parses a subagent definition from a file on disk.
func LoadSubagentFile(path string) (SubagentDefinition, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return SubagentDefinition{}, false, err
	}
	def, ok := ParseSubagentDefinition(string(content))
	return def, ok, nil
}

// LoadSubagentDir loads every ".md" subagent definition found directly in
// dir. A missing directory yields an empty slice rather than an error, since
// subagent directories are optional project configuration.
func LoadSubagentDir(dir string) ([]SubagentDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var defs []SubagentDefinition
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		def, ok, err := LoadSubagentFile(filepath.Join(dir, entry.Name()))
		if err != nil || !ok {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// BuiltinSubagents returns the subagent definitions bundled with the binary.
func BuiltinSubagents() []SubagentDefinition {
	defs, err := LoadSubagentFS(subagents.PromptsFS(), ".")
	if err != nil {
		return nil
	}
	return defs
}

// LoadSubagentFS loads every ".md" subagent definition found directly under
// root in fsys, for reading bundled (embedded) subagent prompts.
func LoadSubagentFS(fsys fs.FS, root string) ([]SubagentDefinition, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var defs []SubagentDefinition
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		content, err := fs.ReadFile(fsys, filepath.Join(root, entry.Name()))
		if err != nil {
			continue
		}
		def, ok := ParseSubagentDefinition(string(content))
		if !ok {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}
