package journey

import (
	"time"

	"github.com/fitz/trailmap/internal/models"
)

// TransitionOptions carries the optional inputs of a status change.
type TransitionOptions struct {
	// ActualDaysSpent overrides the duration derived from StartedAt on completion.
	ActualDaysSpent *int
	// Note is appended to the step's notes when the transition succeeds.
	Note string
}

// TransitionResult describes what a successful status change did to the graph.
type TransitionResult struct {
	StepID   string
	From     models.StepStatus
	To       models.StepStatus
	Unlocked string
}

// Transition applies one status change to j in place, enforcing the state machine:
//
//	locked -> available -> in_progress -> completed
//	any state before completed -> skipped
//
// completed and skipped are terminal. On completion or skip of a main path step the
// immediate main path successor is unlocked when its prerequisites are all completed.
func Transition(j *models.Journey, stepID string, to models.StepStatus, now time.Time, opts TransitionOptions) (TransitionResult, error) {
	const op = "transition"

	s, ok := j.Step(stepID)
	if !ok {
		return TransitionResult{}, notFoundErr(op, stepID)
	}
	if opts.ActualDaysSpent != nil && *opts.ActualDaysSpent < 0 {
		return TransitionResult{}, validationErr(op, "actual days spent must not be negative")
	}

	from := s.Status
	if err := checkTransition(j, s, to); err != nil {
		return TransitionResult{}, err
	}

	s.Status = to
	switch to {
	case models.StepStatusInProgress:
		if s.StartedAt == nil {
			t := now
			s.StartedAt = &t
		}
	case models.StepStatusCompleted:
		t := now
		s.CompletedAt = &t
		days := elapsedDays(s, now, opts.ActualDaysSpent)
		s.ActualDaysSpent = &days
	case models.StepStatusSkipped:
		bypassSkipped(j, s)
	}
	if opts.Note != "" {
		s.Notes = append(s.Notes, opts.Note)
	}
	j.CurrentStepOverride = nil

	res := TransitionResult{StepID: s.ID, From: from, To: to}
	if to == models.StepStatusCompleted || to == models.StepStatusSkipped {
		res.Unlocked = propagate(j, s)
	}
	refresh(j, now)
	return res, nil
}

func checkTransition(j *models.Journey, s *models.Step, to models.StepStatus) error {
	const op = "transition"

	switch s.Status {
	case models.StepStatusCompleted, models.StepStatusSkipped:
		return transitionErr(op, s.ID, "step is %s and cannot change status", s.Status)
	}

	switch to {
	case models.StepStatusAvailable:
		if s.Status != models.StepStatusLocked {
			return transitionErr(op, s.ID, "only a locked step can become available, step is %s", s.Status)
		}
		if !prerequisitesMet(j, s) {
			return transitionErr(op, s.ID, "prerequisites are not all completed")
		}
	case models.StepStatusInProgress:
		if s.Status != models.StepStatusAvailable {
			return transitionErr(op, s.ID, "only an available step can be started, step is %s", s.Status)
		}
	case models.StepStatusCompleted:
		if s.Status != models.StepStatusInProgress {
			return transitionErr(op, s.ID, "only an in-progress step can be completed, step is %s", s.Status)
		}
	case models.StepStatusSkipped:
		if s.Status == models.StepStatusAlternative {
			return transitionErr(op, s.ID, "an alternative step is off the main path and cannot be skipped")
		}
	case models.StepStatusLocked, models.StepStatusAlternative:
		return transitionErr(op, s.ID, "status %s cannot be entered directly", to)
	default:
		return &Error{Kind: ErrValidation, Op: op, ID: s.ID}
	}
	return nil
}

// propagate looks one step ahead on the main path and unlocks it if its gate is open.
func propagate(j *models.Journey, s *models.Step) string {
	if !s.OnMainPath() {
		return ""
	}
	next := mainSuccessor(j, s)
	if next == nil || next.Status != models.StepStatusLocked || !prerequisitesMet(j, next) {
		return ""
	}
	next.Status = models.StepStatusAvailable
	return next.ID
}

// elapsedDays is the explicit value, else whole days since start (at least one),
// else the estimate.
func elapsedDays(s *models.Step, now time.Time, explicit *int) int {
	if explicit != nil {
		return *explicit
	}
	if s.StartedAt == nil {
		return s.EstimatedDays
	}
	return max(1, int(now.Sub(*s.StartedAt)/(24*time.Hour)))
}
