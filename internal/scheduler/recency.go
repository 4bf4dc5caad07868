package scheduler

import (
	"context"
	"time"

	"github.com/codeready-toolchain/llmbench/internal/store"
)

// shouldSkipForRecency implements the tool-calling suite's per-(model,task)
// recency skip (spec.md §4.10, testable scenario S6): a session is skipped
// if one for the same pair completed within the last 20 hours. A lookup
// error is treated as "no prior session" so a transient store hiccup never
// permanently starves a pair.
func shouldSkipForRecency(ctx context.Context, st *store.Client, modelID, taskSlug string, now time.Time) (bool, error) {
	age, found, err := st.MostRecentToolSessionAge(ctx, modelID, taskSlug, now)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return isWithinRecencyWindow(age), nil
}

// isWithinRecencyWindow is the pure boundary check behind the 20-hour skip
// rule, isolated so the literal 19h/20h/21h scenario can be tested without
// a store (spec.md testable scenario S6).
func isWithinRecencyWindow(age time.Duration) bool {
	return age < toolRecencyWindow
}
