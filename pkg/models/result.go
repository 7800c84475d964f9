package models

import "time"

// PatchStatus is the outcome of one patch attempt.
type PatchStatus string

const (
	StatusApplied   PatchStatus = "applied"
	StatusUnchanged PatchStatus = "unchanged"
	StatusFailed    PatchStatus = "failed"
)

// PatchResult records what happened to one ChangeEvent.
type PatchResult struct {
	Event  ChangeEvent `json:"event"`
	File   string      `json:"file,omitempty"`
	Status PatchStatus `json:"status"`
	Code   string      `json:"code,omitempty"`
	Error  string      `json:"error,omitempty"`
	Source string      `json:"source,omitempty"`
	At     time.Time   `json:"at"`
}
