// Package subagents bundles the built-in subagent definitions shipped with
// the binary.
package subagents

import (
	"embed"
	"io/fs"
)

//go:embed prompts/*.md
var promptsFS embed.FS

// PromptsFS returns the embedded filesystem containing bundled subagent
// prompt files, rooted at the prompts directory.
func PromptsFS() fs.FS {
	sub, err := fs.Sub(promptsFS, "prompts")
	if err != nil {
		return promptsFS
	}
	return sub
}
