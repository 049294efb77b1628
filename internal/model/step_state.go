package model

import "time"

// StepState is the snapshot of a single step as submitted to a sequence
// status. Snapshots are immutable once recorded; re-submitting the same
// step number overwrites the previous snapshot.
type StepState struct {
	Number   int
	Name     string
	Status   Status
	Output   string
	Error    string
	Duration time.Duration
	Strategy Strategy
}
