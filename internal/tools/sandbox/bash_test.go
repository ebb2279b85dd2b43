package sandbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBashTool_ForegroundRunsScript(t *testing.T) {
	tool := NewBashTool(AlwaysAllowHandler{}, NewJobRegistry(), t.TempDir())
	params, _ := json.Marshal(BashParams{ShellID: "s1", Script: "echo hello", Mode: BashSandboxed})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello") {
		t.Fatalf("expected output to contain 'hello', got %q", result.Content)
	}
}

func TestBashTool_DeniedByPermissionHandler(t *testing.T) {
	deny := NewFuncPermissionHandler(func(mode BashMode, script string) (bool, error) { return false, nil }, nil)
	tool := NewBashTool(deny, NewJobRegistry(), t.TempDir())
	params, _ := json.Marshal(BashParams{ShellID: "s1", Script: "echo hi", Mode: BashUnsafe})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected denied script to produce an error result")
	}
}

func TestBashTool_BackgroundRegistersJob(t *testing.T) {
	jobs := NewJobRegistry()
	tool := NewBashTool(AlwaysAllowHandler{}, jobs, t.TempDir())
	params, _ := json.Marshal(BashParams{ShellID: "s1", Script: "echo bg && sleep 0.05", Mode: BashSandboxed, Background: true})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}

	list := jobs.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 registered job, got %d", len(list))
	}
	if list[0].ShellID != "s1" {
		t.Fatalf("expected shell id s1, got %s", list[0].ShellID)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := jobs.Get(list[0].PID)
		if ok && job.Status != ShellRunning {
			if job.Status != ShellSucceeded {
				t.Fatalf("expected background job to succeed, got status %s", job.Status)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("background job did not finish in time")
}

func TestBashTool_CloseShellKillsRunningJobs(t *testing.T) {
	jobs := NewJobRegistry()
	tool := NewBashTool(AlwaysAllowHandler{}, jobs, t.TempDir())
	params, _ := json.Marshal(BashParams{ShellID: "s2", Script: "sleep 5", Mode: BashSandboxed, Background: true})

	if _, err := tool.Execute(context.Background(), params); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	killed := tool.CloseShell("s2")
	if killed != 1 {
		t.Fatalf("expected 1 job killed, got %d", killed)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		list := jobs.ListByShell("s2")
		if len(list) == 1 && list[0].Status == ShellKilled {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected job status to settle to killed")
}

func TestListJobsTool_ReturnsPreviewAndStatus(t *testing.T) {
	jobs := NewJobRegistry()
	jobs.Register(&ShellJob{PID: 123, ShellID: "s1", Script: "echo one\necho two", Mode: BashSandboxed, OutputPath: "/tmp/x.log", Status: ShellRunning})

	listTool := NewListJobsTool(jobs)
	result, err := listTool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var entries []ListJobsEntry
	if err := json.Unmarshal([]byte(result.Content), &entries); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Preview != "echo one" {
		t.Fatalf("expected preview truncated at newline, got %q", entries[0].Preview)
	}
	if entries[0].PID != 123 || entries[0].Status != ShellRunning {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestListJobsTool_FiltersByShellID(t *testing.T) {
	jobs := NewJobRegistry()
	jobs.Register(&ShellJob{PID: 1, ShellID: "a", Script: "x", Status: ShellRunning})
	jobs.Register(&ShellJob{PID: 2, ShellID: "b", Script: "y", Status: ShellRunning})

	listTool := NewListJobsTool(jobs)
	params, _ := json.Marshal(map[string]string{"shell_id": "a"})
	result, err := listTool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var entries []ListJobsEntry
	if err := json.Unmarshal([]byte(result.Content), &entries); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(entries) != 1 || entries[0].ShellID != "a" {
		t.Fatalf("expected filtered result for shell a, got %+v", entries)
	}
}
