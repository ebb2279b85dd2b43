package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/agentcore/agentcore/internal/agent"
	"github.com/google/uuid"
)

// BashTool runs shell scripts gated by a PermissionHandler and, for
// background invocations, tracked in a JobRegistry. Unlike Executor (which
// runs one-shot code snippets in a pooled container), BashTool models a
// single addressable shell session: a shell id scopes permission-network
// approvals and groups background jobs so they can be listed or torn down
// together.
type BashTool struct {
	permissions PermissionHandler
	jobs        *JobRegistry
	outputDir   string
}

// NewBashTool builds a BashTool. A nil permissions handler always allows; a
// nil jobs registry is replaced with a fresh one.
func NewBashTool(permissions PermissionHandler, jobs *JobRegistry, outputDir string) *BashTool {
	if permissions == nil {
		permissions = AlwaysAllowHandler{}
	}
	if jobs == nil {
		jobs = NewJobRegistry()
	}
	return &BashTool{permissions: permissions, jobs: jobs, outputDir: outputDir}
}

// BashParams is the input schema for the bash tool.
type BashParams struct {
	ShellID    string   `json:"shell_id"`
	Script     string   `json:"script"`
	Mode       BashMode `json:"mode"`
	Background bool     `json:"background,omitempty"`
	TimeoutSec int      `json:"timeout_seconds,omitempty"`
}

func (b *BashTool) Name() string { return "bash" }

func (b *BashTool) Description() string {
	return "Runs a shell script under a permission mode (sandboxed, network, or unsafe). " +
		"Background invocations are tracked in the job registry and can be listed or closed."
}

func (b *BashTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"shell_id": {"type": "string", "description": "Logical shell session id; jobs are grouped by this value"},
			"script": {"type": "string"},
			"mode": {"type": "string", "enum": ["sandboxed", "network", "unsafe"]},
			"background": {"type": "boolean"},
			"timeout_seconds": {"type": "integer"}
		},
		"required": ["shell_id", "script", "mode"]
	}`)
}

func (b *BashTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var p BashParams
	if err := json.Unmarshal(params, &p); err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	if p.Mode == "" {
		p.Mode = BashSandboxed
	}

	allowed, err := b.permissions.Check(p.Mode, p.Script)
	if err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("permission check failed: %v", err), IsError: true}, nil
	}
	if !allowed {
		return &agent.ToolResult{Content: "script denied by permission handler", IsError: true}, nil
	}

	if p.Background {
		return b.runBackground(ctx, p)
	}
	return b.runForeground(ctx, p)
}

func (b *BashTool) runForeground(ctx context.Context, p BashParams) (*agent.ToolResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if p.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(p.TimeoutSec)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "/bin/bash", "-c", p.Script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	out := stdout.String()
	if stderr.Len() > 0 {
		out += "\n" + stderr.String()
	}
	if runErr != nil {
		return &agent.ToolResult{Content: out + "\n" + runErr.Error(), IsError: true}, nil
	}
	return &agent.ToolResult{Content: out}, nil
}

func (b *BashTool) runBackground(ctx context.Context, p BashParams) (*agent.ToolResult, error) {
	outputPath, outFile, err := b.openOutputFile(p.ShellID)
	if err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("failed to allocate output file: %v", err), IsError: true}, nil
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	if p.TimeoutSec > 0 {
		jobCtx, cancel = context.WithTimeout(jobCtx, time.Duration(p.TimeoutSec)*time.Second)
	}

	cmd := exec.CommandContext(jobCtx, "/bin/bash", "-c", p.Script)
	cmd.Stdout = outFile
	cmd.Stderr = outFile

	if err := cmd.Start(); err != nil {
		cancel()
		outFile.Close()
		return &agent.ToolResult{Content: fmt.Sprintf("failed to start background job: %v", err), IsError: true}, nil
	}

	pid := cmd.Process.Pid
	job := &ShellJob{
		PID:        pid,
		ShellID:    p.ShellID,
		Script:     p.Script,
		Mode:       p.Mode,
		OutputPath: outputPath,
		Status:     ShellRunning,
		StartedAt:  time.Now(),
	}
	b.jobs.Register(job)
	b.jobs.SetCancelFunc(pid, cancel)

	go func() {
		defer outFile.Close()
		defer cancel()
		if err := cmd.Wait(); err != nil {
			if jobCtx.Err() != nil {
				b.jobs.UpdateStatus(pid, ShellKilled)
			} else {
				b.jobs.UpdateStatus(pid, ShellFailed)
			}
			return
		}
		b.jobs.UpdateStatus(pid, ShellSucceeded)
	}()

	return &agent.ToolResult{Content: fmt.Sprintf("started background job pid=%d shell_id=%s output=%s", pid, p.ShellID, outputPath)}, nil
}

func (b *BashTool) openOutputFile(shellID string) (string, *os.File, error) {
	dir := b.outputDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("bash-%s-%s.log", shellID, uuid.NewString())
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	return path, f, nil
}

// CloseShell cancels every running background job for shellID and returns
// how many were killed.
func (b *BashTool) CloseShell(shellID string) int {
	return b.jobs.CloseShell(shellID)
}

// ListJobsTool exposes the job registry as a read-only agent.Tool, returning
// pid, shell id, status, output path, and a script preview per job.
type ListJobsTool struct {
	jobs *JobRegistry
}

// NewListJobsTool builds a ListJobsTool over jobs.
func NewListJobsTool(jobs *JobRegistry) *ListJobsTool {
	return &ListJobsTool{jobs: jobs}
}

func (l *ListJobsTool) Name() string { return "list_shell_jobs" }

func (l *ListJobsTool) Description() string {
	return "Lists background shell jobs with pid, shell id, status, output path, and a script preview."
}

func (l *ListJobsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"shell_id": {"type": "string", "description": "Optional filter to a single shell session"}
		}
	}`)
}

// ListJobsEntry is a single row of list_shell_jobs output.
type ListJobsEntry struct {
	PID        int         `json:"pid"`
	ShellID    string      `json:"shell_id"`
	Status     ShellStatus `json:"status"`
	OutputPath string      `json:"output_path"`
	Preview    string      `json:"script_preview"`
}

func (l *ListJobsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var p struct {
		ShellID string `json:"shell_id"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
		}
	}

	var jobs []*ShellJob
	if p.ShellID != "" {
		jobs = l.jobs.ListByShell(p.ShellID)
	} else {
		jobs = l.jobs.List()
	}

	entries := make([]ListJobsEntry, 0, len(jobs))
	for _, j := range jobs {
		entries = append(entries, ListJobsEntry{
			PID:        j.PID,
			ShellID:    j.ShellID,
			Status:     j.Status,
			OutputPath: j.OutputPath,
			Preview:    j.ScriptPreview(80),
		})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("failed to marshal jobs: %v", err), IsError: true}, nil
	}
	return &agent.ToolResult{Content: string(data)}, nil
}

var (
	_ agent.Tool = (*BashTool)(nil)
	_ agent.Tool = (*ListJobsTool)(nil)
)
