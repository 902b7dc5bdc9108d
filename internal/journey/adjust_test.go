package journey

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/fitz/trailmap/internal/models"
)

func TestReconcile_InsertThenUpdateInSameBatch(t *testing.T) {
	j := linearJourney(7, 7, 7, 7)
	finish(t, j, "s1", day(0), day(5))

	adj := models.Adjustment{
		JourneyID: "j1",
		Changes: []models.ChangeOp{
			{
				Kind:        models.ChangeInsertAfter,
				AfterStepID: "s2",
				Step:        &models.StepSpec{Ref: "drills", Title: "Speed drills", EstimatedDays: 3, Tips: []string{"warm up"}},
				Reason:      "already training on the track",
			},
			{Kind: models.ChangeUpdateStatus, StepID: "drills", NewStatus: models.StepStatusInProgress},
		},
		Message: "Nice work",
	}

	res, err := Reconcile(j, adj, day(6), seqIDs("n"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	inserted, ok := res.Journey.Step("n1")
	if !ok {
		t.Fatal("inserted step n1 not found")
	}
	if inserted.Status != models.StepStatusInProgress {
		t.Errorf("expected inserted step in progress, got %s", inserted.Status)
	}
	if inserted.PathType != models.PathTypeMain || inserted.Order != 2 || inserted.EstimatedDays != 3 {
		t.Errorf("unexpected inserted step %+v", inserted)
	}
	if inserted.Extension == nil || !slices.Equal(inserted.Extension.Tips, []string{"warm up"}) {
		t.Errorf("expected tips on the extension, got %+v", inserted.Extension)
	}

	var order []string
	for _, s := range res.Journey.MainPath() {
		order = append(order, s.ID)
	}
	if !slices.Equal(order, []string{"s1", "s2", "n1", "s3", "s4"}) {
		t.Errorf("unexpected main path order %v", order)
	}
	if len(res.Changes) != 2 || !strings.Contains(res.Changes[0], "Speed drills") {
		t.Errorf("unexpected change log %v", res.Changes)
	}
	if res.Message != "Nice work" {
		t.Errorf("expected message to pass through, got %q", res.Message)
	}

	// The input journey is untouched.
	if _, ok := j.Step("n1"); ok {
		t.Error("Reconcile modified its input")
	}
}

func TestReconcile_InsertCarriesAlternatives(t *testing.T) {
	j := linearJourney(7, 7, 7)
	j.Steps[2].PathType = models.PathTypeAlternative
	j.Steps[2].Status = models.StepStatusAlternative
	adj := models.Adjustment{Changes: []models.ChangeOp{
		{Kind: models.ChangeInsertAfter, AfterStepID: "s1", Step: &models.StepSpec{
			Title:         "Choose a plan",
			Prerequisites: []string{"s1"},
			Alternatives:  []string{"s2", "s3"},
		}},
	}}

	res, err := Reconcile(j, adj, day(1), seqIDs("n"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	s, _ := res.Journey.Step("n1")
	if !slices.Equal(s.Alternatives, []string{"s2", "s3"}) {
		t.Errorf("expected alternatives [s2 s3], got %v", s.Alternatives)
	}
}

func TestReconcile_InsertAwayFromCurrentIsLocked(t *testing.T) {
	j := linearJourney(7, 7, 7)
	adj := models.Adjustment{Changes: []models.ChangeOp{
		{Kind: models.ChangeInsertAfter, AfterStepID: "s2", Step: &models.StepSpec{Title: "Later"}},
	}}

	res, err := Reconcile(j, adj, day(1), seqIDs("n"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	s, _ := res.Journey.Step("n1")
	if s.Status != models.StepStatusLocked {
		t.Errorf("expected locked, got %s", s.Status)
	}
	if s.EstimatedDays != int(DefaultStepDays) {
		t.Errorf("expected default estimate, got %d", s.EstimatedDays)
	}
}

func TestReconcile_UnknownStepLeavesJourneyUnchanged(t *testing.T) {
	j := linearJourney(7, 7, 7)
	before, err := json.Marshal(j)
	if err != nil {
		t.Fatal(err)
	}

	adj := models.Adjustment{
		JourneyID: "j1",
		Changes: []models.ChangeOp{
			{Kind: models.ChangeRename, StepID: "s1", NewTitle: "Warm up"},
			{Kind: models.ChangeSkip, StepID: "s2"},
			{Kind: models.ChangeRename, StepID: "ghost", NewTitle: "Boo"},
		},
	}

	res, err := Reconcile(j, adj, day(1), seqIDs("n"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if res != nil {
		t.Error("expected no result on failure")
	}
	after, _ := json.Marshal(j)
	if string(before) != string(after) {
		t.Errorf("journey changed:\n%s\n%s", before, after)
	}
}

func TestReconcile_Rejected(t *testing.T) {
	tests := []struct {
		name string
		adj  models.Adjustment
		kind error
	}{
		{
			name: "illegal transition aborts batch",
			adj: models.Adjustment{Changes: []models.ChangeOp{
				{Kind: models.ChangeRename, StepID: "s1", NewTitle: "Warm up"},
				{Kind: models.ChangeUpdateStatus, StepID: "s3", NewStatus: models.StepStatusCompleted},
			}},
			kind: ErrInvalidTransition,
		},
		{
			name: "unknown operation type",
			adj:  models.Adjustment{Changes: []models.ChangeOp{{Kind: "merge", StepID: "s1"}}},
			kind: ErrValidation,
		},
		{
			name: "rename without title",
			adj:  models.Adjustment{Changes: []models.ChangeOp{{Kind: models.ChangeRename, StepID: "s1"}}},
			kind: ErrValidation,
		},
		{
			name: "other journey",
			adj:  models.Adjustment{JourneyID: "j2"},
			kind: ErrNotFound,
		},
		{
			name: "prerequisite on unknown step",
			adj: models.Adjustment{Changes: []models.ChangeOp{
				{Kind: models.ChangeInsertAfter, AfterStepID: "s1", Step: &models.StepSpec{Title: "New", Prerequisites: []string{"ghost"}}},
			}},
			kind: ErrNotFound,
		},
		{
			name: "alternative on unknown step",
			adj: models.Adjustment{Changes: []models.ChangeOp{
				{Kind: models.ChangeInsertAfter, AfterStepID: "s1", Step: &models.StepSpec{Title: "New", Alternatives: []string{"ghost"}}},
			}},
			kind: ErrNotFound,
		},
		{
			name: "inserted step cannot depend on itself",
			adj: models.Adjustment{Changes: []models.ChangeOp{
				{Kind: models.ChangeInsertAfter, AfterStepID: "s1", Step: &models.StepSpec{Ref: "me", Title: "New", Prerequisites: []string{"me"}}},
			}},
			kind: ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			j := linearJourney(7, 7, 7)
			before := j.Clone()

			_, err := Reconcile(j, tc.adj, day(1), seqIDs("n"))
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if j.Steps[0].CustomTitle != before.Steps[0].CustomTitle {
				t.Error("journey modified by a rejected batch")
			}
		})
	}
}

func TestReconcile_SkipSemantics(t *testing.T) {
	j := linearJourney(7, 7, 7, 7)
	j.Steps[3].PathType = models.PathTypeAlternative
	j.Steps[3].Status = models.StepStatusAlternative
	finish(t, j, "s1", day(0), day(4))

	adj := models.Adjustment{Changes: []models.ChangeOp{
		{Kind: models.ChangeSkip, StepID: "s1"},
		{Kind: models.ChangeSkip, StepID: "s2", Reason: "already known"},
		{Kind: models.ChangeSkip, StepID: "s2"},
		{Kind: models.ChangeSkip, StepID: "s4"},
	}}

	res, err := Reconcile(j, adj, day(5), seqIDs("n"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := statusOf(t, res.Journey, "s1"); got != models.StepStatusCompleted {
		t.Errorf("skip must not touch a completed step, got %s", got)
	}
	if got := statusOf(t, res.Journey, "s2"); got != models.StepStatusSkipped {
		t.Errorf("expected s2 skipped, got %s", got)
	}
	if got := statusOf(t, res.Journey, "s3"); got != models.StepStatusAvailable {
		t.Errorf("expected s3 available, got %s", got)
	}
	if got := statusOf(t, res.Journey, "s4"); got != models.StepStatusAlternative {
		t.Errorf("skip must not touch an alternative step, got %s", got)
	}
	if !slices.Equal(res.Changes, []string{`Skipped "Step 2": already known`}) {
		t.Errorf("unexpected change log %v", res.Changes)
	}
}

func TestReconcile_CurrentStepIndex(t *testing.T) {
	tests := []struct {
		name     string
		index    *int
		expected int
	}{
		{name: "derived when absent", index: nil, expected: 0},
		{name: "explicit", index: intPtr(1), expected: 1},
		{name: "clamped high", index: intPtr(99), expected: 2},
		{name: "clamped low", index: intPtr(-4), expected: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			j := linearJourney(7, 7, 7)
			res, err := Reconcile(j, models.Adjustment{NewCurrentStepIndex: tc.index}, day(1), seqIDs("n"))
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if got := res.Journey.CurrentStepIndex(); got != tc.expected {
				t.Errorf("expected index %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestReconcile_RenameKeepsGeneratedTitle(t *testing.T) {
	j := linearJourney(7)
	res, err := Reconcile(j, models.Adjustment{Changes: []models.ChangeOp{
		{Kind: models.ChangeRename, StepID: "s1", NewTitle: "Base miles"},
	}}, day(1), seqIDs("n"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	s, _ := res.Journey.Step("s1")
	if s.Title != "Step 1" || s.DisplayTitle() != "Base miles" {
		t.Errorf("unexpected titles %q / %q", s.Title, s.DisplayTitle())
	}
	if res.Changes[0] != `Renamed "Step 1" to "Base miles"` {
		t.Errorf("unexpected change %q", res.Changes[0])
	}
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(j *models.Journey)
		wantErr string
	}{
		{name: "valid", mutate: func(j *models.Journey) {}},
		{name: "cycle", mutate: func(j *models.Journey) { j.Steps[0].Prerequisites = []string{"s3"} }, wantErr: "cycle"},
		{name: "self prerequisite", mutate: func(j *models.Journey) { j.Steps[1].Prerequisites = []string{"s2"} }, wantErr: "itself"},
		{name: "unknown prerequisite", mutate: func(j *models.Journey) { j.Steps[1].Prerequisites = []string{"x"} }, wantErr: "unknown prerequisite"},
		{name: "unknown alternative", mutate: func(j *models.Journey) { j.Steps[1].Alternatives = []string{"x"} }, wantErr: "unknown alternative"},
		{name: "duplicate id", mutate: func(j *models.Journey) { j.Steps[2].ID = "s1" }, wantErr: "duplicate"},
		{
			name: "cycle through alternatives",
			mutate: func(j *models.Journey) {
				j.Steps[2].PathType = models.PathTypeAlternative
				j.Steps[2].Status = models.StepStatusAlternative
				j.Steps[0].Prerequisites = []string{"s3"}
			},
			wantErr: "cycle",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			j := linearJourney(1, 1, 1)
			tc.mutate(j)
			err := validateGraph(j)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
