package store

import "errors"

// Sentinel errors for store operations, mirroring the teacher's
// pkg/queue/types.go / pkg/config/errors.go style of narrow, named errors.
var (
	ErrModelNotFound       = errors.New("model not found")
	ErrRunNotFound         = errors.New("run not found")
	ErrToolSessionNotFound = errors.New("tool session not found")
	ErrMetricAlreadyExists = errors.New("metric already recorded for run")
)
