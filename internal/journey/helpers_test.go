package journey

import (
	"fmt"
	"testing"
	"time"

	"github.com/fitz/trailmap/internal/models"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return t0.AddDate(0, 0, n)
}

func intPtr(n int) *int {
	return &n
}

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// linearJourney builds one main path step per estimate, each depending on the
// previous one. The first step is available.
func linearJourney(estimates ...int) *models.Journey {
	j := &models.Journey{
		ID:               "j1",
		UserID:           "u1",
		GoalContent:      "Run a marathon under four hours",
		CreatedAt:        t0,
		UpdatedAt:        t0,
		JourneyStartedAt: t0,
	}
	for i, est := range estimates {
		s := models.Step{
			ID:            fmt.Sprintf("s%d", i+1),
			JourneyID:     j.ID,
			Order:         i,
			Title:         fmt.Sprintf("Step %d", i+1),
			Status:        models.StepStatusLocked,
			PathType:      models.PathTypeMain,
			EstimatedDays: est,
			CreatedAt:     t0,
		}
		if i > 0 {
			s.Prerequisites = []string{fmt.Sprintf("s%d", i)}
		}
		j.Steps = append(j.Steps, s)
	}
	if len(j.Steps) > 0 {
		j.Steps[0].Status = models.StepStatusAvailable
	}
	return j
}

func mustTransition(t *testing.T, j *models.Journey, id string, to models.StepStatus, now time.Time) TransitionResult {
	t.Helper()
	res, err := Transition(j, id, to, now, TransitionOptions{})
	if err != nil {
		t.Fatalf("Transition(%s, %s): %v", id, to, err)
	}
	return res
}

// finish starts and completes a step.
func finish(t *testing.T, j *models.Journey, id string, start, end time.Time) {
	t.Helper()
	mustTransition(t, j, id, models.StepStatusInProgress, start)
	mustTransition(t, j, id, models.StepStatusCompleted, end)
}

func statusOf(t *testing.T, j *models.Journey, id string) models.StepStatus {
	t.Helper()
	s, ok := j.Step(id)
	if !ok {
		t.Fatalf("step %s not found", id)
	}
	return s.Status
}

// checkGate asserts that no step is available unless all its prerequisites are completed.
func checkGate(t *testing.T, j *models.Journey) {
	t.Helper()
	for i := range j.Steps {
		s := &j.Steps[i]
		if s.Status == models.StepStatusAvailable && !prerequisitesMet(j, s) {
			t.Errorf("step %s is available with unmet prerequisites %v", s.ID, s.Prerequisites)
		}
	}
}
