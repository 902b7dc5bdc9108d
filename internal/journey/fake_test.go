package journey

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/fitz/trailmap/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore records calls and returns whatever the per-method funcs say. When gate
// is set every write waits for it to close (or for the call's context to end).
type fakeStore struct {
	mu    sync.Mutex
	calls []string
	ctxs  []error
	saved *models.Journey
	gate  chan struct{}

	createJourney    func(j *models.Journey) error
	getJourney       func(userID, journeyID string) (*models.Journey, error)
	updateStepStatus func(j *models.Journey, stepID, note string) error
	updateStepTitle  func(j *models.Journey, stepID string) error
	appendNote       func(j *models.Journey, stepID string) error
	applyAdjustment  func(j *models.Journey, changes []string) error
	deleteJourney    func(userID, journeyID string) error
}

func (f *fakeStore) record(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.ctxs = append(f.ctxs, ctx.Err())
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) save(j *models.Journey, err error) error {
	if err == nil {
		f.mu.Lock()
		f.saved = j.Clone()
		f.mu.Unlock()
	}
	return err
}

func (f *fakeStore) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) CreateJourney(ctx context.Context, j *models.Journey) error {
	if err := f.record(ctx, "CreateJourney"); err != nil {
		return err
	}
	var err error
	if f.createJourney != nil {
		err = f.createJourney(j)
	}
	return f.save(j, err)
}

func (f *fakeStore) GetCurrentJourney(ctx context.Context, userID string) (*models.Journey, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "GetCurrentJourney")
	saved := f.saved
	f.mu.Unlock()
	if saved == nil || saved.UserID != userID {
		return nil, &Error{Kind: ErrNotFound, Op: "get_current_journey", ID: userID}
	}
	return saved.Clone(), nil
}

func (f *fakeStore) GetJourney(ctx context.Context, userID, journeyID string) (*models.Journey, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "GetJourney")
	saved := f.saved
	f.mu.Unlock()
	if f.getJourney != nil {
		return f.getJourney(userID, journeyID)
	}
	if saved == nil || saved.ID != journeyID || saved.UserID != userID {
		return nil, &Error{Kind: ErrNotFound, Op: "get_journey", ID: journeyID}
	}
	return saved.Clone(), nil
}

func (f *fakeStore) UpdateStepStatus(ctx context.Context, j *models.Journey, stepID, note string) error {
	if err := f.record(ctx, "UpdateStepStatus"); err != nil {
		return err
	}
	var err error
	if f.updateStepStatus != nil {
		err = f.updateStepStatus(j, stepID, note)
	}
	return f.save(j, err)
}

func (f *fakeStore) UpdateStepTitle(ctx context.Context, j *models.Journey, stepID string) error {
	if err := f.record(ctx, "UpdateStepTitle"); err != nil {
		return err
	}
	var err error
	if f.updateStepTitle != nil {
		err = f.updateStepTitle(j, stepID)
	}
	return f.save(j, err)
}

func (f *fakeStore) AppendNote(ctx context.Context, j *models.Journey, stepID string) error {
	if err := f.record(ctx, "AppendNote"); err != nil {
		return err
	}
	var err error
	if f.appendNote != nil {
		err = f.appendNote(j, stepID)
	}
	return f.save(j, err)
}

func (f *fakeStore) ApplyAdjustment(ctx context.Context, j *models.Journey, changes []string) error {
	if err := f.record(ctx, "ApplyAdjustment"); err != nil {
		return err
	}
	var err error
	if f.applyAdjustment != nil {
		err = f.applyAdjustment(j, changes)
	}
	return f.save(j, err)
}

func (f *fakeStore) DeleteJourney(ctx context.Context, userID, journeyID string) error {
	if err := f.record(ctx, "DeleteJourney"); err != nil {
		return err
	}
	if f.deleteJourney != nil {
		if err := f.deleteJourney(userID, journeyID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.saved = nil
	f.mu.Unlock()
	return nil
}

type fakeGenerator struct {
	out *GenerationOutput
	err error
	got GenerationRequest
}

func (g *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationOutput, error) {
	g.got = req
	return g.out, g.err
}

type fakeAdjuster struct {
	proposal *AdjustmentProposal
	err      error
	got      AdjustmentRequest
}

func (a *fakeAdjuster) Adjust(ctx context.Context, req AdjustmentRequest) (*AdjustmentProposal, error) {
	a.got = req
	return a.proposal, a.err
}
