package index

import (
	"sync"

	"github.com/agentcore/agentcore/internal/rag/parser/markdown"
	"github.com/agentcore/agentcore/internal/rag/parser/text"
)

var registerParsersOnce sync.Once

func ensureDefaultParsers() {
	registerParsersOnce.Do(func() {
		markdown.Register()
		text.Register()
	})
}
