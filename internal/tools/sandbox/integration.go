package sandbox

import (
	"github.com/agentcore/agentcore/internal/agent"
)

// Register registers the sandbox executor as a tool with the agent's tool registry.
func Register(registry *agent.ToolRegistry, opts ...Option) error {
	executor, err := NewExecutor(opts...)
	if err != nil {
		return err
	}

	registry.Register(executor)
	return nil
}

// MustRegister registers the sandbox executor and panics on error.
// Use this in initialization code where errors should be fatal.
func MustRegister(registry *agent.ToolRegistry, opts ...Option) {
	if err := Register(registry, opts...); err != nil {
		panic(err)
	}
}
