package trial

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic cache-busting digest, not a security boundary
	"encoding/hex"
	"fmt"
)

// systemPromptPool is a fixed set of instruction-equivalent system messages.
// Rotating across the pool on retries busts provider-side prompt caching
// without changing task semantics, grounded on the teacher's
// prompt.instructions variant-pool pattern.
var systemPromptPool = []string{
	"You are a careful Python engineer. Write correct, idiomatic code and nothing else unless asked.",
	"You write clean, correct Python. Follow the prompt exactly and keep explanations brief.",
	"Act as an experienced Python developer. Produce working code that satisfies the request precisely.",
	"You are a meticulous software engineer who writes Python. Prioritize correctness over verbosity.",
}

// systemPrompt returns the attempt-th variant from the pool, wrapping
// around if there are more attempts than variants.
func systemPrompt(attempt int) string {
	if attempt < 0 {
		attempt = 0
	}
	return systemPromptPool[attempt%len(systemPromptPool)]
}

// nonce derives a short, deterministic-looking per-request token from the
// session id, trial number, and retry attempt, so retried requests to a
// caching-prone provider still look request-unique.
func nonce(sessionID string, trialNum, attempt int) string {
	h := sha1.New() //nolint:gosec
	fmt.Fprintf(h, "%s:%d:%d", sessionID, trialNum, attempt)
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// appendNonceComment suffixes a user prompt with a no-op comment carrying
// the nonce, invisible to a reader evaluating the prompt's substance.
func appendNonceComment(prompt, sessionID string, trialNum, attempt int) string {
	return fmt.Sprintf("%s\n\n# request-id: %s", prompt, nonce(sessionID, trialNum, attempt))
}
