// Package toolsession drives one (model, tool-task) pair end-to-end (C6):
// turn loop, tool execution against a sandbox, success checking, and the
// ten-axis tool-calling rubric.
package toolsession

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/llmbench/internal/adapter"
	"github.com/codeready-toolchain/llmbench/internal/sandbox"
)

// ErrUnsafeOperation marks an executor refusal on safety grounds (spec.md
// §4.7 "safetyCompliance" dangerous-call accounting).
var ErrUnsafeOperation = errors.New("toolsession: unsafe operation refused")

// ErrFileTooLarge marks a read refused for exceeding the size bound.
var ErrFileTooLarge = errors.New("toolsession: file exceeds read size limit")

const (
	maxCallDuration = 60 * time.Second
	maxReadBytes    = 1 << 20 // 1 MB
)

// sensitiveBasenames are refused wherever they appear, relative or not —
// grounded loosely on the teacher's masking package's pattern-matching
// checks (pkg/masking/pattern.go), generalized from "mask this text" to
// "refuse this path".
var sensitiveBasenames = []string{"passwd", "shadow", "sudoers", "id_rsa", "id_ed25519"}

// isSafePath rejects any absolute path outright, as well as any relative
// path that escapes the workspace via ".." or names a sensitive basename.
func isSafePath(path string) bool {
	if strings.Contains(path, "..") {
		return false
	}
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) {
		return false
	}
	base := filepath.Base(clean)
	for _, s := range sensitiveBasenames {
		if base == s {
			return false
		}
	}
	return true
}

// Executor runs one tool call's side effects inside a sandbox and returns a
// short result string summarizing the outcome.
type Executor func(ctx context.Context, mgr *sandbox.Manager, sandboxID string, args map[string]string) (string, error)

// ToolSpec pairs an adapter-facing definition with its executor.
type ToolSpec struct {
	Definition adapter.ToolDefinition
	Executor   Executor
}

// Registry is the fixed tool-calling surface offered to every tool-task
// session, grounded on the teacher's MCP tool registry shape
// (pkg/mcp exposing `toolName -> spec`) generalized from "proxy to an
// external MCP server" to "execute directly against the trial's sandbox".
type Registry struct {
	tools map[string]ToolSpec
}

func NewRegistry() *Registry {
	r := &Registry{tools: map[string]ToolSpec{}}
	r.register("write_to_file", "Write content to a file in the workspace.", execWriteFile)
	r.register("read_file", "Read a file's contents from the workspace.", execReadFile)
	r.register("run_command", "Run a shell command in the workspace.", execRunCommand)
	return r
}

func (r *Registry) register(name, description string, exec Executor) {
	r.tools[name] = ToolSpec{
		Definition: adapter.ToolDefinition{Name: name, Description: description, Parameters: parameterSchemaFor(name)},
		Executor:   exec,
	}
}

func parameterSchemaFor(name string) string {
	switch name {
	case "write_to_file":
		return `{"type":"object","required":["path","content"],"properties":{"path":{"type":"string"},"content":{"type":"string"}}}`
	case "read_file":
		return `{"type":"object","required":["path"],"properties":{"path":{"type":"string"}}}`
	case "run_command":
		return `{"type":"object","required":["command"],"properties":{"command":{"type":"string"}}}`
	default:
		return `{"type":"object"}`
	}
}

// Definitions returns every tool's adapter-facing definition, in a stable
// order.
func (r *Registry) Definitions() []adapter.ToolDefinition {
	names := []string{"write_to_file", "read_file", "run_command"}
	out := make([]adapter.ToolDefinition, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n].Definition)
	}
	return out
}

// Size returns the number of distinct tools in the registry, used by the
// toolDiversity metric.
func (r *Registry) Size() int { return len(r.tools) }

// Execute dispatches call to its executor with a 60s bound.
func (r *Registry) Execute(ctx context.Context, mgr *sandbox.Manager, sandboxID string, call adapter.ToolCall) (string, error) {
	spec, ok := r.tools[call.Name]
	if !ok {
		return "", fmt.Errorf("%w: unknown tool %q", ErrUnsafeOperation, call.Name)
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, maxCallDuration)
	defer cancel()

	return spec.Executor(callCtx, mgr, sandboxID, args)
}

func execWriteFile(ctx context.Context, mgr *sandbox.Manager, sandboxID string, args map[string]string) (string, error) {
	path := args["path"]
	if !isSafePath(path) {
		return "", fmt.Errorf("%w: write to %q", ErrUnsafeOperation, path)
	}
	if err := mgr.WriteFile(ctx, sandboxID, path, args["content"]); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(args["content"]), path), nil
}

func execReadFile(ctx context.Context, mgr *sandbox.Manager, sandboxID string, args map[string]string) (string, error) {
	path := args["path"]
	if !isSafePath(path) {
		return "", fmt.Errorf("%w: read %q", ErrUnsafeOperation, path)
	}

	sizeRes, err := mgr.Exec(ctx, sandboxID, []string{"sh", "-c", fmt.Sprintf("wc -c < %s 2>/dev/null || echo -1", shellQuotePath(path))})
	if err == nil {
		if n, convErr := strconv.Atoi(strings.TrimSpace(sizeRes.Stdout)); convErr == nil && n >= 0 && n >= maxReadBytes {
			return "", fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, path, n)
		}
	}

	content, err := mgr.ReadFile(ctx, sandboxID, path)
	if err != nil {
		return "", err
	}
	return content, nil
}

func execRunCommand(ctx context.Context, mgr *sandbox.Manager, sandboxID string, args map[string]string) (string, error) {
	command := args["command"]
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty command", ErrUnsafeOperation)
	}
	res, err := mgr.Exec(ctx, sandboxID, []string{"sh", "-c", command})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("exit %d\n%s", res.ExitCode, res.Stdout), nil
}

func shellQuotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
