package models

import (
	"cmp"
	"slices"
	"time"
)

// Journey is the aggregate root: a goal and the step graph leading to it.
type Journey struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	GoalID      string `json:"goal_id,omitempty"`
	GoalContent string `json:"goal_content"`
	GoalReason  string `json:"goal_reason,omitempty"`
	Steps       []Step `json:"steps"`

	// CurrentStepOverride is only set by an applied adjustment. When nil the
	// current step is derived from main path statuses.
	CurrentStepOverride *int `json:"current_step_override,omitempty"`

	OverallProgress  float64   `json:"overall_progress"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	JourneyStartedAt time.Time `json:"journey_started_at"`
	AIGenerated      bool      `json:"ai_generated"`
	AINotes          string    `json:"ai_notes,omitempty"`
}

// MainPath returns the steps on the main path ordered by Order.
func (j *Journey) MainPath() []*Step {
	var out []*Step
	for i := range j.Steps {
		if j.Steps[i].OnMainPath() {
			out = append(out, &j.Steps[i])
		}
	}
	slices.SortStableFunc(out, func(a, b *Step) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// Step looks up a step by ID.
func (j *Journey) Step(id string) (*Step, bool) {
	for i := range j.Steps {
		if j.Steps[i].ID == id {
			return &j.Steps[i], true
		}
	}
	return nil, false
}

// CompletedSteps returns the completed main path steps.
func (j *Journey) CompletedSteps() []*Step {
	var out []*Step
	for _, s := range j.MainPath() {
		if s.Status == StepStatusCompleted {
			out = append(out, s)
		}
	}
	return out
}

// RemainingSteps returns main path steps that are neither completed nor skipped.
func (j *Journey) RemainingSteps() []*Step {
	var out []*Step
	for _, s := range j.MainPath() {
		if s.Status != StepStatusCompleted && s.Status != StepStatusSkipped {
			out = append(out, s)
		}
	}
	return out
}

// Progress is completed / counted main path steps, where skipped steps are not counted.
func (j *Journey) Progress() float64 {
	completed, counted := 0, 0
	for _, s := range j.MainPath() {
		switch s.Status {
		case StepStatusSkipped:
			continue
		case StepStatusCompleted:
			completed++
		}
		counted++
	}
	return float64(completed) / float64(max(1, counted))
}

// CurrentStepIndex points into MainPath at the active step.
func (j *Journey) CurrentStepIndex() int {
	main := j.MainPath()
	if len(main) == 0 {
		return 0
	}
	if j.CurrentStepOverride != nil {
		return min(max(*j.CurrentStepOverride, 0), len(main)-1)
	}
	for i, s := range main {
		if s.Status != StepStatusCompleted && s.Status != StepStatusSkipped {
			return i
		}
	}
	return len(main) - 1
}

// CurrentStep returns the active step, or nil for an empty journey.
func (j *Journey) CurrentStep() *Step {
	main := j.MainPath()
	if len(main) == 0 {
		return nil
	}
	return main[j.CurrentStepIndex()]
}

// IsComplete reports whether no main path work remains.
func (j *Journey) IsComplete() bool {
	return len(j.RemainingSteps()) == 0
}

// Clone returns a deep copy of the journey.
func (j *Journey) Clone() *Journey {
	if j == nil {
		return nil
	}
	c := *j
	if j.Steps != nil {
		c.Steps = make([]Step, len(j.Steps))
		for i, s := range j.Steps {
			c.Steps[i] = s.Clone()
		}
	}
	if j.CurrentStepOverride != nil {
		idx := *j.CurrentStepOverride
		c.CurrentStepOverride = &idx
	}
	return &c
}
