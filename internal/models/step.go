package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// StepStatus defines the status of a journey step
type StepStatus string

const (
	StepStatusLocked      StepStatus = "locked"
	StepStatusAvailable   StepStatus = "available"
	StepStatusInProgress  StepStatus = "in_progress"
	StepStatusCompleted   StepStatus = "completed"
	StepStatusSkipped     StepStatus = "skipped"
	StepStatusAlternative StepStatus = "alternative"
)

// ValidStepStatuses contains all valid step status values
var ValidStepStatuses = []StepStatus{
	StepStatusLocked,
	StepStatusAvailable,
	StepStatusInProgress,
	StepStatusCompleted,
	StepStatusSkipped,
	StepStatusAlternative,
}

// IsValidStepStatus checks if a status string is a valid StepStatus
func IsValidStepStatus(s string) bool {
	return slices.Contains(ValidStepStatuses, StepStatus(s))
}

// ParseStepStatus converts a wire value into a StepStatus. Unknown values are rejected.
func ParseStepStatus(s string) (StepStatus, error) {
	if !IsValidStepStatus(s) {
		return "", fmt.Errorf("invalid step status %q (must be one of: locked, available, in_progress, completed, skipped, alternative)", s)
	}
	return StepStatus(s), nil
}

// UnmarshalJSON rejects unknown status tags at the decode boundary.
func (s *StepStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("step status must be a string: %w", err)
	}
	parsed, err := ParseStepStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PathType places a step on the main path or on a branch not taken
type PathType string

const (
	PathTypeMain        PathType = "main"
	PathTypeAlternative PathType = "alternative"
	PathTypeCompleted   PathType = "completed"
)

// IsValidPathType checks if a string is a valid PathType
func IsValidPathType(s string) bool {
	switch PathType(s) {
	case PathTypeMain, PathTypeAlternative, PathTypeCompleted:
		return true
	}
	return false
}

// CurrentExtensionVersion is the only StepExtension version this build understands.
const CurrentExtensionVersion = 1

// StepExtension is the closed, versioned record of generator-authored extras on a step.
type StepExtension struct {
	Version            int      `json:"version"`
	Tips               []string `json:"tips,omitempty"`
	SelectedPathStepID string   `json:"selected_path_step_id,omitempty"`
}

// UnmarshalJSON decodes strictly: unknown fields and versions fail instead of being dropped.
func (e *StepExtension) UnmarshalJSON(b []byte) error {
	type plain StepExtension
	var p plain
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("invalid step extension: %w", err)
	}
	if p.Version != CurrentExtensionVersion {
		return fmt.Errorf("unsupported step extension version %d", p.Version)
	}
	*e = StepExtension(p)
	return nil
}

// Step represents one unit of work toward the goal.
type Step struct {
	ID              string         `json:"id"`
	JourneyID       string         `json:"journey_id"`
	Order           int            `json:"order"`
	Title           string         `json:"title"`
	CustomTitle     string         `json:"custom_title,omitempty"`
	Description     string         `json:"description"`
	Prerequisites   []string       `json:"prerequisites,omitempty"`
	Alternatives    []string       `json:"alternatives,omitempty"`
	Status          StepStatus     `json:"status"`
	PathType        PathType       `json:"path_type"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Notes           []string       `json:"notes,omitempty"`
	EstimatedDays   int            `json:"estimated_days"`
	ActualDaysSpent *int           `json:"actual_days_spent,omitempty"`
	Extension       *StepExtension `json:"extension,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// DisplayTitle returns the custom title if set, otherwise the generated one.
func (s Step) DisplayTitle() string {
	if s.CustomTitle != "" {
		return s.CustomTitle
	}
	return s.Title
}

// OnMainPath reports whether the step is part of the traversed path.
func (s Step) OnMainPath() bool {
	return s.PathType == PathTypeMain || s.PathType == PathTypeCompleted
}

// DaysSpent is the recorded duration, falling back to the estimate.
func (s Step) DaysSpent() int {
	if s.ActualDaysSpent != nil {
		return *s.ActualDaysSpent
	}
	return s.EstimatedDays
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	c := s
	c.Prerequisites = slices.Clone(s.Prerequisites)
	c.Alternatives = slices.Clone(s.Alternatives)
	c.Notes = slices.Clone(s.Notes)
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	if s.ActualDaysSpent != nil {
		d := *s.ActualDaysSpent
		c.ActualDaysSpent = &d
	}
	if s.Extension != nil {
		ext := *s.Extension
		ext.Tips = slices.Clone(s.Extension.Tips)
		c.Extension = &ext
	}
	return c
}

// StepSpec is a generator-authored description of a step that does not exist yet.
// Ref is a batch-local handle other specs or change operations may refer to.
type StepSpec struct {
	Ref           string   `json:"ref,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	Alternatives  []string `json:"alternatives,omitempty"`
	EstimatedDays int      `json:"estimated_days,omitempty"`
	PathType      PathType `json:"path_type,omitempty"`
	Tips          []string `json:"tips,omitempty"`
}
