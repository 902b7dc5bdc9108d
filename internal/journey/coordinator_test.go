package journey

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fitz/trailmap/internal/models"
)

func newTestCoordinator(store Store, j *models.Journey, opts CoordinatorOptions) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.Now == nil {
		clock := t0
		opts.Now = func() time.Time {
			clock = clock.Add(24 * time.Hour)
			return clock
		}
	}
	if opts.NewID == nil {
		opts.NewID = seqIDs("n")
	}
	return NewCoordinator(store, j, opts)
}

func waitConfirmed(t *testing.T, res *Result) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := res.Confirmation.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		t.Fatal("confirmation never resolved")
	}
	return err
}

func TestCoordinator_AppliesLocallyBeforeConfirmation(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	c := newTestCoordinator(store, linearJourney(7, 7, 7, 7), CoordinatorOptions{})

	res, err := c.StartStep(context.Background(), "s1")
	if err != nil {
		t.Fatalf("StartStep: %v", err)
	}
	if got := statusOf(t, res.Journey, "s1"); got != models.StepStatusInProgress {
		t.Errorf("expected result to show in_progress, got %s", got)
	}
	snap, _ := c.Snapshot()
	if got := statusOf(t, snap, "s1"); got != models.StepStatusInProgress {
		t.Errorf("expected snapshot to show in_progress, got %s", got)
	}
	p, ok := c.Pending()["s1"]
	if !ok || p.Value != string(models.StepStatusInProgress) || p.Op != "update_step_status" {
		t.Errorf("expected a pending marker for s1, got %+v", c.Pending())
	}
	select {
	case <-res.Confirmation.Done():
		t.Fatal("confirmation resolved while the store was gated")
	default:
	}

	close(store.gate)
	if err := waitConfirmed(t, res); err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if len(c.Pending()) != 0 {
		t.Errorf("expected pending markers to be cleared, got %+v", c.Pending())
	}
	if !slices.Equal(store.callLog(), []string{"UpdateStepStatus"}) {
		t.Errorf("unexpected store calls %v", store.callLog())
	}
}

func TestCoordinator_RollbackOnRemoteFailure(t *testing.T) {
	boom := errors.New("connection reset")
	store := &fakeStore{
		updateStepStatus: func(*models.Journey, string, string) error { return boom },
	}
	c := newTestCoordinator(store, linearJourney(7, 7, 7), CoordinatorOptions{})
	before, _ := c.Snapshot()

	res, err := c.StartStep(context.Background(), "s1")
	if err != nil {
		t.Fatalf("StartStep: %v", err)
	}
	err = waitConfirmed(t, res)
	if !errors.Is(err, ErrRemoteFailure) || !errors.Is(err, boom) {
		t.Fatalf("expected remote failure wrapping the cause, got %v", err)
	}
	if !Recoverable(err) {
		t.Error("remote failures should be recoverable")
	}
	if res.Confirmation.Err() == nil {
		t.Error("Err should report the failure once done")
	}

	after, _ := c.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot not restored:\nbefore %+v\nafter  %+v", before, after)
	}
	if len(c.Pending()) != 0 {
		t.Errorf("expected pending markers to be cleared, got %+v", c.Pending())
	}
}

func TestCoordinator_StaleViewSuppressesRollback(t *testing.T) {
	store := &fakeStore{
		gate:             make(chan struct{}),
		updateStepStatus: func(*models.Journey, string, string) error { return errors.New("timeout") },
	}
	c := newTestCoordinator(store, linearJourney(7, 7, 7), CoordinatorOptions{})

	started, err := c.StartStep(context.Background(), "s1")
	if err != nil {
		t.Fatalf("StartStep: %v", err)
	}
	noted, err := c.AddNote(context.Background(), "s1", "bought new shoes")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	close(store.gate)
	if err := waitConfirmed(t, started); !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if err := waitConfirmed(t, noted); err != nil {
		t.Fatalf("note confirmation: %v", err)
	}

	snap, _ := c.Snapshot()
	s1, _ := snap.Step("s1")
	if s1.Status != models.StepStatusInProgress || !slices.Equal(s1.Notes, []string{"bought new shoes"}) {
		t.Errorf("later mutation was rolled back: %+v", s1)
	}
}

func TestCoordinator_CallerCancellationDoesNotAbortRemote(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	c := newTestCoordinator(store, linearJourney(7, 7), CoordinatorOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	res, err := c.StartStep(ctx, "s1")
	if err != nil {
		t.Fatalf("StartStep: %v", err)
	}
	cancel()

	if err := res.Confirmation.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the caller to stop waiting, got %v", err)
	}
	close(store.gate)
	c.Wait()

	if err := res.Confirmation.Err(); err != nil {
		t.Fatalf("remote write failed after caller left: %v", err)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.ctxs) != 1 || store.ctxs[0] != nil {
		t.Errorf("remote call saw a cancelled context: %v", store.ctxs)
	}
}

func TestCoordinator_TimeoutRollsBack(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	defer close(store.gate)
	c := newTestCoordinator(store, linearJourney(7, 7), CoordinatorOptions{RemoteTimeout: 20 * time.Millisecond})
	before, _ := c.Snapshot()

	res, err := c.RenameStep(context.Background(), "s1", "Base miles")
	if err != nil {
		t.Fatalf("RenameStep: %v", err)
	}
	if err := waitConfirmed(t, res); !errors.Is(err, ErrRemoteFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout as remote failure, got %v", err)
	}
	after, _ := c.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Error("snapshot not restored after timeout")
	}
}

func TestCoordinator_LocalErrorsNeverReachStore(t *testing.T) {
	tests := []struct {
		name string
		run  func(c *Coordinator) error
		kind error
	}{
		{
			name: "empty note",
			run:  func(c *Coordinator) error { _, err := c.AddNote(context.Background(), "s1", "  "); return err },
			kind: ErrValidation,
		},
		{
			name: "start locked step",
			run:  func(c *Coordinator) error { _, err := c.StartStep(context.Background(), "s2"); return err },
			kind: ErrInvalidTransition,
		},
		{
			name: "rename unknown step",
			run:  func(c *Coordinator) error { _, err := c.RenameStep(context.Background(), "zz", "x"); return err },
			kind: ErrNotFound,
		},
		{
			name: "adjustment with unknown step",
			run: func(c *Coordinator) error {
				_, err := c.ApplyAdjustment(context.Background(), models.Adjustment{
					Changes: []models.ChangeOp{{Kind: models.ChangeSkip, StepID: "zz"}},
				})
				return err
			},
			kind: ErrNotFound,
		},
		{
			name: "short activity",
			run:  func(c *Coordinator) error { _, err := c.Adjust(context.Background(), "run", ""); return err },
			kind: ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			c := newTestCoordinator(store, linearJourney(7, 7), CoordinatorOptions{Adjuster: &fakeAdjuster{}})
			before, _ := c.Snapshot()

			if err := tc.run(c); !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			c.Wait()
			if calls := store.callLog(); len(calls) != 0 {
				t.Errorf("store was called: %v", calls)
			}
			after, _ := c.Snapshot()
			if !reflect.DeepEqual(before, after) {
				t.Error("snapshot changed")
			}
		})
	}
}

func TestCoordinator_Signals(t *testing.T) {
	c := newTestCoordinator(&fakeStore{}, linearJourney(7, 7, 7, 7, 7, 7, 7, 7), CoordinatorOptions{})
	ctx := context.Background()

	var signals []Signal
	for _, id := range []string{"s1", "s2", "s3"} {
		res, err := c.StartStep(ctx, id)
		if err != nil {
			t.Fatalf("StartStep(%s): %v", id, err)
		}
		if res.Signal != (Signal{}) {
			t.Errorf("starting a step should not signal, got %+v", res.Signal)
		}
		res, err = c.CompleteStep(ctx, id, nil, "")
		if err != nil {
			t.Fatalf("CompleteStep(%s): %v", id, err)
		}
		signals = append(signals, res.Signal)
	}
	c.Wait()

	expected := []Signal{
		{Kind: SignalStepCompleted},
		{Kind: SignalMilestone, Threshold: 0.25},
		{Kind: SignalStepCompleted},
	}
	if !reflect.DeepEqual(signals, expected) {
		t.Errorf("expected %+v, got %+v", expected, signals)
	}
}

func TestCoordinator_ResultCarriesETA(t *testing.T) {
	c := newTestCoordinator(&fakeStore{}, linearJourney(7, 7), CoordinatorOptions{})
	res, err := c.AddNote(context.Background(), "s1", "first run done")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	c.Wait()
	if res.ETA.TotalEstimatedDays != 14 || res.ETA.StepsRemaining != 2 {
		t.Errorf("unexpected eta %+v", res.ETA)
	}
	if res.Changes != nil {
		t.Errorf("notes do not describe changes, got %v", res.Changes)
	}
}

func TestCoordinator_Adjust(t *testing.T) {
	adjuster := &fakeAdjuster{proposal: &AdjustmentProposal{
		Changes: []models.ChangeOp{
			{Kind: models.ChangeRename, StepID: "s2", NewTitle: "Tempo runs"},
		},
		NewCurrentStepIndex: intPtr(1),
		Message:             "You are further along than planned",
	}}
	store := &fakeStore{}
	c := newTestCoordinator(store, linearJourney(7, 7, 7), CoordinatorOptions{Adjuster: adjuster})

	res, err := c.Adjust(context.Background(), "running 5k three times a week", "no injuries")
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if err := waitConfirmed(t, res); err != nil {
		t.Fatalf("confirmation: %v", err)
	}

	if adjuster.got.CurrentStepTitle != "Step 1" || adjuster.got.Activity != "running 5k three times a week" {
		t.Errorf("unexpected adjustment request %+v", adjuster.got)
	}
	if !strings.Contains(adjuster.got.Steps, `"id":"s3"`) {
		t.Errorf("serialized steps missing s3: %s", adjuster.got.Steps)
	}
	if res.Message != "You are further along than planned" || res.Journey.CurrentStepIndex() != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if !slices.Equal(store.callLog(), []string{"ApplyAdjustment"}) {
		t.Errorf("unexpected store calls %v", store.callLog())
	}
	if _, ok := c.Pending()["j1"]; ok {
		t.Error("adjustment pending marker not cleared")
	}
}

func TestCoordinator_AdjustFailures(t *testing.T) {
	tests := []struct {
		name     string
		adjuster *fakeAdjuster
		kinds    []error
	}{
		{
			name:     "collaborator error",
			adjuster: &fakeAdjuster{err: errors.New("quota exceeded")},
			kinds:    []error{ErrGenerationFailure},
		},
		{
			name:     "empty proposal",
			adjuster: &fakeAdjuster{},
			kinds:    []error{ErrGenerationFailure},
		},
		{
			name: "proposal references unknown step",
			adjuster: &fakeAdjuster{proposal: &AdjustmentProposal{Changes: []models.ChangeOp{
				{Kind: models.ChangeSkip, StepID: "ghost"},
			}}},
			kinds: []error{ErrGenerationFailure, ErrNotFound},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCoordinator(&fakeStore{}, linearJourney(7, 7), CoordinatorOptions{Adjuster: tc.adjuster})
			_, err := c.Adjust(context.Background(), "swimming instead", "")
			for _, kind := range tc.kinds {
				if !errors.Is(err, kind) {
					t.Errorf("expected %v in %v", kind, err)
				}
			}
		})
	}
}

func TestCoordinator_ChoosePath(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store, forkJourney(), CoordinatorOptions{})

	res, err := c.ChoosePath(context.Background(), "d", "b1")
	if err != nil {
		t.Fatalf("ChoosePath: %v", err)
	}
	if err := waitConfirmed(t, res); err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if res.Journey.CurrentStep().ID != "b1" {
		t.Errorf("expected b1 current, got %s", res.Journey.CurrentStep().ID)
	}
	if !slices.Equal(store.callLog(), []string{"ApplyAdjustment"}) {
		t.Errorf("unexpected store calls %v", store.callLog())
	}
}

func TestCoordinator_RefreshAndDelete(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store, linearJourney(7, 7), CoordinatorOptions{})
	ctx := context.Background()

	res, err := c.StartStep(ctx, "s1")
	if err != nil {
		t.Fatalf("StartStep: %v", err)
	}
	if err := waitConfirmed(t, res); err != nil {
		t.Fatalf("confirmation: %v", err)
	}

	// Someone else finished the step in the store.
	store.mu.Lock()
	store.saved.Steps[0].Status = models.StepStatusCompleted
	store.mu.Unlock()

	j, err := c.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := statusOf(t, j, "s1"); got != models.StepStatusCompleted {
		t.Errorf("expected refreshed status completed, got %s", got)
	}
	if j.OverallProgress != 0.5 {
		t.Errorf("expected derived progress to be recomputed, got %v", j.OverallProgress)
	}

	if err := c.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Snapshot(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := c.StartStep(ctx, "s2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound mutating a deleted journey, got %v", err)
	}
	if _, err := c.Refresh(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound refreshing a deleted journey, got %v", err)
	}
}

func TestCoordinator_DeleteFailureKeepsJourney(t *testing.T) {
	store := &fakeStore{deleteJourney: func(string, string) error { return errors.New("read only") }}
	c := newTestCoordinator(store, linearJourney(7), CoordinatorOptions{})

	if err := c.Delete(context.Background()); !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if _, err := c.Snapshot(); err != nil {
		t.Errorf("journey should still be open: %v", err)
	}
}
