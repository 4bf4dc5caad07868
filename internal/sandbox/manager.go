// Package sandbox manages ephemeral Linux containers used to execute
// untrusted model-generated code and shell commands (C3).
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/codeready-toolchain/llmbench/internal/task"
)

// State is a sandbox's position in the creating -> running -> stopped|error
// lifecycle (spec.md §4.3).
type State string

const (
	StateCreating State = "creating"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

var (
	ErrSandboxNotFound = errors.New("sandbox: not found")
	ErrNotRunning      = errors.New("sandbox: not running")
)

// sandboxExpiry bounds how long a sandbox may live before CleanupExpired
// reclaims it, a guardrail against leaked containers from crashed trials.
const sandboxExpiry = 1 * time.Hour

// Handle is a live sandbox's bookkeeping record.
type Handle struct {
	ID         string
	State      State
	Config     task.SandboxConfig
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastErr    error
	container  testcontainers.Container
}

// ExecResult is the outcome of a single Exec call.
type ExecResult struct {
	ExitCode int
	Stdout   string
}

// Manager creates and tracks sandboxes, grounded on the teacher's shared
// testcontainer lifecycle in test/util/database.go, generalized from a
// single shared Postgres container to many independent per-trial
// containers.
type Manager struct {
	mu        sync.Mutex
	sandboxes map[string]*Handle
}

func NewManager() *Manager {
	return &Manager{sandboxes: make(map[string]*Handle)}
}

// Create starts a new sandbox container per cfg and blocks until it reports
// running, or returns an error with the handle left in StateError.
func (m *Manager) Create(ctx context.Context, id string, cfg task.SandboxConfig) (*Handle, error) {
	h := &Handle{
		ID:        id,
		State:     StateCreating,
		Config:    cfg,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(sandboxExpiry),
	}
	m.put(h)

	networkMode := dockercontainer.NetworkMode("none")
	if cfg.NetworkAccess {
		networkMode = "bridge"
	}

	req := testcontainers.ContainerRequest{
		Image:      cfg.Image,
		Cmd:        []string{"sleep", "infinity"},
		WaitingFor: wait.ForExec([]string{"true"}).WithStartupTimeout(30 * time.Second),
		Tmpfs: map[string]string{
			cfg.WorkingDir: "rw,exec,size=128m",
		},
		HostConfigModifier: func(hc *dockercontainer.HostConfig) {
			hc.NetworkMode = networkMode
			hc.ReadonlyRootfs = true
			hc.CapDrop = []string{"ALL"}
			hc.SecurityOpt = []string{"no-new-privileges"}
			hc.Privileged = false
			if cfg.MemoryLimitMB > 0 {
				hc.Resources.Memory = int64(cfg.MemoryLimitMB) * 1024 * 1024
			}
			if cfg.CPULimit > 0 {
				hc.Resources.NanoCPUs = int64(cfg.CPULimit * 1e9)
			}
		},
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		h.State = StateError
		h.LastErr = err
		return h, fmt.Errorf("sandbox create %s: %w", id, err)
	}

	h.container = c
	h.State = StateRunning
	return h, nil
}

// Exec runs cmd inside the sandbox's working directory and returns its exit
// code and combined stdout/stderr.
func (m *Manager) Exec(ctx context.Context, id string, cmd []string) (ExecResult, error) {
	h, err := m.get(id)
	if err != nil {
		return ExecResult{}, err
	}
	if h.State != StateRunning {
		return ExecResult{}, fmt.Errorf("%w: sandbox %s is %s", ErrNotRunning, id, h.State)
	}

	exitCode, reader, err := h.container.Exec(ctx, cmd, tcexec.WithWorkingDir(h.Config.WorkingDir))
	if err != nil {
		return ExecResult{}, fmt.Errorf("sandbox exec %s: %w", id, err)
	}

	var buf bytes.Buffer
	if reader != nil {
		_, _ = io.Copy(&buf, reader)
	}
	return ExecResult{ExitCode: exitCode, Stdout: buf.String()}, nil
}

// WriteFile writes content to path (relative to the sandbox's working
// directory) using the here-document protocol in herefile.go.
func (m *Manager) WriteFile(ctx context.Context, id, path, content string) error {
	cmd := hereDocWriteCommand(path, content)
	res, err := m.Exec(ctx, id, cmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("sandbox writeFile %s: exit %d: %s", path, res.ExitCode, res.Stdout)
	}
	return nil
}

// ReadFile returns the contents of path relative to the sandbox's working
// directory.
func (m *Manager) ReadFile(ctx context.Context, id, path string) (string, error) {
	res, err := m.Exec(ctx, id, []string{"cat", path})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("sandbox readFile %s: exit %d", path, res.ExitCode)
	}
	return res.Stdout, nil
}

// Destroy terminates the sandbox's container and marks it stopped in place.
// Idempotent: destroying an already-stopped or unknown sandbox succeeds
// without error, since callers (the codegen aggregator's deferred cleanup,
// CleanupExpired) may race or retry against the same id.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	h, err := m.get(id)
	if err != nil {
		return nil
	}
	if h.State == StateStopped {
		return nil
	}
	container := h.container
	h.State = StateStopped
	if container == nil {
		return nil
	}
	if err := testcontainers.TerminateContainer(container); err != nil {
		return fmt.Errorf("sandbox destroy %s: %w", id, err)
	}
	return nil
}

// CleanupExpired destroys every sandbox past its expiry, a guardrail
// against leaked containers from crashed trial runners.
func (m *Manager) CleanupExpired(ctx context.Context) []error {
	now := time.Now()
	var expired []string
	m.mu.Lock()
	for id, h := range m.sandboxes {
		if now.After(h.ExpiresAt) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range expired {
		if err := m.Destroy(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (m *Manager) put(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sandboxes[h.ID] = h
}

func (m *Manager) get(id string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.sandboxes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSandboxNotFound, id)
	}
	return h, nil
}
