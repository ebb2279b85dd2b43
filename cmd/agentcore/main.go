// Package main provides the CLI entry point for agentcore, a multi-provider
// LLM agent execution core.
//
// agentcore wires an LLMProvider (Anthropic, OpenAI, Bedrock, or Google
// Gemini), a tool registry (file I/O, sandboxed shell, RAG search), and a
// session store into the agentic loop and drives it to completion from the
// command line.
//
// # Basic usage
//
//	agentcore run --provider anthropic --prompt "summarize README.md"
//
// # Environment variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - OPENAI_API_KEY: OpenAI API key for GPT models
//   - GOOGLE_API_KEY: Google AI API key for Gemini models
//   - AWS credentials (standard chain): for Bedrock-hosted models
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentcore",
		Short: "agentcore - multi-provider LLM agent execution core",
		Long: `agentcore drives a single agentic loop against a chosen LLM provider,
with tool execution (files, sandboxed shell, RAG search), session persistence,
and context compression built in.

Supported providers: anthropic, openai, bedrock, google`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildSessionsCmd(),
	)

	return rootCmd
}
