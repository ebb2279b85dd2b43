package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/agent"
	"github.com/agentcore/agentcore/internal/agent/providers"
	"github.com/agentcore/agentcore/internal/memory/embeddings/ollama"
	ragindex "github.com/agentcore/agentcore/internal/rag/index"
	"github.com/agentcore/agentcore/internal/rag/store/parallelindex"
	"github.com/agentcore/agentcore/internal/sessions"
	"github.com/agentcore/agentcore/internal/tools/files"
	ragtools "github.com/agentcore/agentcore/internal/tools/rag"
	"github.com/agentcore/agentcore/internal/tools/sandbox"
	"github.com/agentcore/agentcore/pkg/models"
)

func buildRunCmd() *cobra.Command {
	var (
		providerName string
		modelName    string
		prompt       string
		systemPrompt string
		workspace    string
		sandboxMode  sandbox.BashMode
		dbPath       string
		maxIters     int
		transcript   string
		ragDB        string
		ragOllama    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single turn of the agentic loop against a provider",
		Example: `  agentcore run --provider anthropic --prompt "list the files in this repo"
  agentcore run --provider openai --model gpt-4o --prompt "summarize README.md"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}

			provider, err := buildProvider(providerName)
			if err != nil {
				return err
			}

			store, closeStore, err := buildSessionStore(dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			registry := agent.NewToolRegistry()
			wireFileTools(registry, workspace)
			wireBashTool(registry, sandboxMode)
			if ragDB != "" {
				closeRAG, err := wireRAGTools(registry, ragDB, ragOllama)
				if err != nil {
					return fmt.Errorf("wire rag tools: %w", err)
				}
				defer closeRAG()
			}

			config := agent.DefaultLoopConfig()
			config.MaxIterations = maxIters
			if transcript != "" {
				config.Transcript = agent.NewTranscript(transcript)
			}

			loop := agent.NewAgenticLoop(provider, registry, store, config)
			loop.SetDefaultModel(modelName)
			if systemPrompt != "" {
				loop.SetDefaultSystem(systemPrompt)
			}

			session, err := store.GetOrCreate(cmd.Context(), sessions.SessionKey("cli", models.ChannelType("cli"), "local"), "cli", models.ChannelType("cli"), "local")
			if err != nil {
				return fmt.Errorf("resolve session: %w", err)
			}

			msg := &models.Message{
				ID:        uuid.NewString(),
				SessionID: session.ID,
				Role:      models.RoleUser,
				Content:   prompt,
				CreatedAt: time.Now(),
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			chunks, err := loop.Run(ctx, session, msg)
			if err != nil {
				return fmt.Errorf("run loop: %w", err)
			}

			for chunk := range chunks {
				if chunk.Error != nil {
					return chunk.Error
				}
				if chunk.Text != "" {
					fmt.Fprint(cmd.OutOrStdout(), chunk.Text)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "anthropic", "LLM provider: anthropic, openai, bedrock, google")
	cmd.Flags().StringVar(&modelName, "model", "", "model id override (defaults to the provider's default model)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "the user prompt to run through the loop")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt override")
	cmd.Flags().StringVar(&workspace, "workspace", ".", "workspace root for file tools and sandboxed shell output")
	cmd.Flags().Var(&bashModeFlag{&sandboxMode}, "sandbox-mode", "bash tool sandbox mode: sandboxed, network, unsafe")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path for session persistence (defaults to in-memory)")
	cmd.Flags().IntVar(&maxIters, "max-iterations", 64, "maximum tool-use iterations per run")
	cmd.Flags().StringVar(&transcript, "transcript", "", "path to an append-only markdown transcript log (disabled if empty)")
	cmd.Flags().StringVar(&ragDB, "rag-db", "", "sqlite path backing the document index; enables document_search/document_upload tools (disabled if empty)")
	cmd.Flags().StringVar(&ragOllama, "rag-embeddings-url", "http://localhost:11434", "Ollama base URL used to embed documents and queries for --rag-db")

	return cmd
}

// bashModeFlag adapts sandbox.BashMode to pflag.Value so it can be set from
// a plain string flag without importing pflag's enum helpers.
type bashModeFlag struct {
	mode *sandbox.BashMode
}

func (f *bashModeFlag) String() string {
	if f.mode == nil || *f.mode == "" {
		return string(sandbox.BashSandboxed)
	}
	return string(*f.mode)
}

func (f *bashModeFlag) Set(value string) error {
	switch sandbox.BashMode(value) {
	case sandbox.BashSandboxed, sandbox.BashNetwork, sandbox.BashUnsafe:
		*f.mode = sandbox.BashMode(value)
		return nil
	default:
		return fmt.Errorf("unknown sandbox mode %q", value)
	}
}

func (f *bashModeFlag) Type() string { return "string" }

func buildProvider(name string) (agent.LLMProvider, error) {
	switch name {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: apiKey})
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return providers.NewOpenAIProvider(apiKey), nil
	case "bedrock":
		return providers.NewBedrockProvider(providers.BedrockConfig{})
	case "google":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
		}
		return providers.NewGoogleProvider(providers.GoogleConfig{APIKey: apiKey})
	default:
		return nil, fmt.Errorf("unknown provider %q (want anthropic, openai, bedrock, or google)", name)
	}
}

func buildSessionStore(dbPath string) (sessions.Store, func(), error) {
	if dbPath == "" {
		return sessions.NewMemoryStore(), func() {}, nil
	}
	store, err := sessions.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	return store, func() { store.Close() }, nil
}

// wireRAGTools opens a sqlite-backed ParallelIndex at dbPath, loading any
// previously persisted documents, and registers document_search,
// document_upload, document_list, and document_delete against it. The
// returned close func flushes the index back to disk.
func wireRAGTools(registry *agent.ToolRegistry, dbPath, ollamaURL string) (func(), error) {
	db, err := parallelindex.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open rag index: %w", err)
	}

	embedder, err := ollama.New(ollama.Config{BaseURL: ollamaURL})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build embedding provider: %w", err)
	}

	ctx := context.Background()
	idx, err := parallelindex.Load(ctx, db, parallelindex.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load rag index: %w", err)
	}

	manager := ragindex.NewManager(idx, embedder, nil)
	registry.Register(ragtools.NewSearchTool(manager, nil))
	registry.Register(ragtools.NewUploadTool(manager, nil))
	registry.Register(ragtools.NewListTool(manager))
	registry.Register(ragtools.NewDeleteTool(manager))

	return func() {
		if err := idx.Save(context.Background(), db); err != nil {
			fmt.Fprintf(os.Stderr, "save rag index: %v\n", err)
		}
		db.Close()
	}, nil
}

func wireFileTools(registry *agent.ToolRegistry, workspace string) {
	cfg := files.Config{Workspace: workspace, MaxReadBytes: 256 * 1024}
	registry.Register(files.NewReadTool(cfg))
	registry.Register(files.NewWriteTool(cfg))
	registry.Register(files.NewEditTool(cfg))
	registry.Register(files.NewApplyPatchTool(cfg))
}

// wireBashTool registers the bash and execute_code tools against a shared
// JobRegistry, plus a list_shell_jobs tool that enumerates both. Code
// execution failures (missing Docker, etc.) are logged and skipped rather
// than failing the whole run, since bash alone is still a usable sandbox.
func wireBashTool(registry *agent.ToolRegistry, mode sandbox.BashMode) {
	if mode == "" {
		mode = sandbox.BashSandboxed
	}
	jobs := sandbox.NewJobRegistry()
	permissions := sandbox.NewStatefulPermissionHandler(sandbox.AlwaysAllowHandler{})
	outputDir := filepath.Join(os.TempDir(), "agentcore-jobs")
	registry.Register(sandbox.NewBashTool(permissions, jobs, outputDir))
	registry.Register(sandbox.NewListJobsTool(jobs))

	executor, err := sandbox.NewExecutor(
		sandbox.WithJobRegistry(jobs),
		sandbox.WithOutputDir(outputDir),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "execute_code tool unavailable: %v\n", err)
		return
	}
	registry.Register(executor)
}
