package toolsession

import (
	"context"
	"strings"

	"github.com/codeready-toolchain/llmbench/internal/sandbox"
	"github.com/codeready-toolchain/llmbench/internal/task"
)

// CheckSuccessCriteria evaluates every criterion deterministically against
// the sandbox filesystem/command output (spec.md §4.7 "Success checking").
// All criteria must hold for the task to be considered successful.
func CheckSuccessCriteria(ctx context.Context, mgr *sandbox.Manager, sandboxID string, criteria []task.SuccessCriterion) bool {
	for _, c := range criteria {
		if !checkOne(ctx, mgr, sandboxID, c) {
			return false
		}
	}
	return true
}

func checkOne(ctx context.Context, mgr *sandbox.Manager, sandboxID string, c task.SuccessCriterion) bool {
	switch c.Kind {
	case task.CriteriaFileExists:
		res, err := mgr.Exec(ctx, sandboxID, []string{"test", "-f", c.Path})
		return err == nil && res.ExitCode == 0

	case task.CriteriaFileContains:
		content, err := mgr.ReadFile(ctx, sandboxID, c.Path)
		return err == nil && strings.Contains(content, c.Contains)

	case task.CriteriaCommandExit:
		if len(c.Command) == 0 {
			return false
		}
		res, err := mgr.Exec(ctx, sandboxID, c.Command)
		return err == nil && res.ExitCode == c.ExpectedExit

	case task.CriteriaCommandStdout:
		if len(c.Command) == 0 {
			return false
		}
		res, err := mgr.Exec(ctx, sandboxID, c.Command)
		return err == nil && strings.Contains(res.Stdout, c.StdoutMatch)

	default:
		return false
	}
}
