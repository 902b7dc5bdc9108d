package models

import "time"

// Pace qualifies how the user is tracking against the estimates
type Pace string

const (
	PaceAhead     Pace = "ahead"
	PaceOnTrack   Pace = "on track"
	PaceBitBehind Pace = "a bit behind"
	PacePickUp    Pace = "pick up pace"
)

// ETA is the projected completion of a journey. It is always recomputed from a
// journey snapshot and never stored.
type ETA struct {
	EstimatedCompletionDate time.Time `json:"estimated_completion_date"`
	TotalEstimatedDays      int       `json:"total_estimated_days"`
	RemainingDays           int       `json:"remaining_days"`
	DaysElapsed             int       `json:"days_elapsed"`
	StepsCompleted          int       `json:"steps_completed"`
	StepsRemaining          int       `json:"steps_remaining"`
	AverageDaysPerStep      float64   `json:"average_days_per_step"`
	VelocityScore           float64   `json:"velocity_score"`
	Pace                    Pace      `json:"pace"`
	DisplayText             string    `json:"display_text"`
}
