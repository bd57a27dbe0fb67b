package world

import "errors"

var (
	// ErrTickCount rejects AdvanceTicks calls with count < 1.
	ErrTickCount = errors.New("tick count must be at least 1")
	// ErrTickLimit rejects AdvanceTicks calls above the per-call ceiling.
	// Callers needing more ticks chunk their calls.
	ErrTickLimit = errors.New("tick count exceeds per-call limit")
)
