package journey

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitz/trailmap/internal/models"
)

// DefaultRemoteTimeout bounds each confirmation call to the store.
const DefaultRemoteTimeout = 10 * time.Second

// CoordinatorOptions configures a Coordinator. Zero values get defaults.
type CoordinatorOptions struct {
	Logger        *slog.Logger
	Now           func() time.Time
	NewID         func() string
	RemoteTimeout time.Duration
	Adjuster      Adjuster
}

// Coordinator owns the single mutable snapshot of one open journey. Mutations apply
// locally and return at once; the store is told afterwards and a failed write
// restores the snapshot taken before the mutation, unless a later mutation has
// already built on top of it.
type Coordinator struct {
	store    Store
	adjuster Adjuster
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	timeout  time.Duration

	mu      sync.Mutex
	journey *models.Journey
	rev     uint64
	pending map[string]Pending
	// tail is the confirmation of the latest mutation; writes reach the store in order.
	tail *Confirmation

	inflight sync.WaitGroup
}

// Pending marks a write that has been applied locally but not yet confirmed.
type Pending struct {
	Op    string `json:"op"`
	Value string `json:"value"`
	rev   uint64
}

// Result is the local outcome of a mutation. Confirmation resolves once the store
// has answered.
type Result struct {
	Journey      *models.Journey
	ETA          models.ETA
	Signal       Signal
	Changes      []string
	Message      string
	Confirmation *Confirmation
}

// Confirmation reports the outcome of the remote half of a mutation.
type Confirmation struct {
	done chan struct{}
	err  error
}

func newConfirmation() *Confirmation {
	return &Confirmation{done: make(chan struct{})}
}

// Done is closed when the store has answered.
func (c *Confirmation) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the store has answered or ctx ends. Giving up does not cancel
// the remote call.
func (c *Confirmation) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the remote failure, if any. It is only meaningful after Done is closed.
func (c *Confirmation) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// NewCoordinator opens j for mutation against store.
func NewCoordinator(store Store, j *models.Journey, opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{
		store:    store,
		adjuster: opts.Adjuster,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
		timeout:  opts.RemoteTimeout,
		journey:  j.Clone(),
		pending:  make(map[string]Pending),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRemoteTimeout
	}
	return c
}

// JourneyID returns the id of the coordinated journey.
func (c *Coordinator) ownedBy(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.journey != nil && c.journey.UserID == userID
}

func (c *Coordinator) JourneyID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.journey == nil {
		return ""
	}
	return c.journey.ID
}

// Snapshot returns a copy of the current local journey.
func (c *Coordinator) Snapshot() (*models.Journey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.journey == nil {
		return nil, notFoundErr("snapshot", "")
	}
	return c.journey.Clone(), nil
}

// ETA projects the current local journey as of now.
func (c *Coordinator) ETA() (models.ETA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.journey == nil {
		return models.ETA{}, notFoundErr("eta", "")
	}
	return Project(c.journey, c.now()), nil
}

// Pending returns the unconfirmed writes keyed by step or journey id.
func (c *Coordinator) Pending() map[string]Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Pending, len(c.pending))
	for k, v := range c.pending {
		out[k] = v
	}
	return out
}

// Wait blocks until every remote confirmation started so far has finished.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// StartStep moves an available step to in_progress.
func (c *Coordinator) StartStep(ctx context.Context, stepID string) (*Result, error) {
	return c.UpdateStepStatus(ctx, stepID, models.StepStatusInProgress, TransitionOptions{})
}

// CompleteStep moves an in_progress step to completed.
func (c *Coordinator) CompleteStep(ctx context.Context, stepID string, actualDays *int, note string) (*Result, error) {
	return c.UpdateStepStatus(ctx, stepID, models.StepStatusCompleted, TransitionOptions{ActualDaysSpent: actualDays, Note: note})
}

// SkipStep abandons a step that has not been completed.
func (c *Coordinator) SkipStep(ctx context.Context, stepID, note string) (*Result, error) {
	return c.UpdateStepStatus(ctx, stepID, models.StepStatusSkipped, TransitionOptions{Note: note})
}

// UpdateStepStatus applies one state machine transition.
func (c *Coordinator) UpdateStepStatus(ctx context.Context, stepID string, to models.StepStatus, opts TransitionOptions) (*Result, error) {
	return c.mutate(ctx, "update_step_status", stepID, func(j *models.Journey, now time.Time) (*mutation, error) {
		tr, err := Transition(j, stepID, to, now, opts)
		if err != nil {
			return nil, err
		}
		s, _ := j.Step(stepID)
		changes := []string{fmt.Sprintf("%q is now %s", s.DisplayTitle(), tr.To)}
		if tr.Unlocked != "" {
			u, _ := j.Step(tr.Unlocked)
			changes = append(changes, fmt.Sprintf("%q is now available", u.DisplayTitle()))
		}
		return &mutation{
			value:     string(tr.To),
			completed: tr.To == models.StepStatusCompleted,
			changes:   changes,
			remote: func(ctx context.Context, j *models.Journey) error {
				return c.store.UpdateStepStatus(ctx, j, stepID, opts.Note)
			},
		}, nil
	})
}

// RenameStep sets the custom title of a step. An empty title restores the
// generated one.
func (c *Coordinator) RenameStep(ctx context.Context, stepID, title string) (*Result, error) {
	title = strings.TrimSpace(title)
	return c.mutate(ctx, "rename_step", stepID, func(j *models.Journey, now time.Time) (*mutation, error) {
		s, ok := j.Step(stepID)
		if !ok {
			return nil, notFoundErr("rename_step", stepID)
		}
		old := s.DisplayTitle()
		s.CustomTitle = title
		refresh(j, now)
		return &mutation{
			value:   title,
			changes: []string{fmt.Sprintf("Renamed %q to %q", old, s.DisplayTitle())},
			remote: func(ctx context.Context, j *models.Journey) error {
				return c.store.UpdateStepTitle(ctx, j, stepID)
			},
		}, nil
	})
}

// AddNote appends a note to a step.
func (c *Coordinator) AddNote(ctx context.Context, stepID, note string) (*Result, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, validationErr("add_note", "note is empty")
	}
	return c.mutate(ctx, "add_note", stepID, func(j *models.Journey, now time.Time) (*mutation, error) {
		s, ok := j.Step(stepID)
		if !ok {
			return nil, notFoundErr("add_note", stepID)
		}
		s.Notes = append(s.Notes, note)
		refresh(j, now)
		return &mutation{
			value: note,
			remote: func(ctx context.Context, j *models.Journey) error {
				return c.store.AppendNote(ctx, j, stepID)
			},
		}, nil
	})
}

// ApplyAdjustment reconciles an adjustment batch into the journey.
func (c *Coordinator) ApplyAdjustment(ctx context.Context, adj models.Adjustment) (*Result, error) {
	key := adj.JourneyID
	if key == "" {
		key = c.JourneyID()
	}
	return c.mutate(ctx, "apply_adjustment", key, func(j *models.Journey, now time.Time) (*mutation, error) {
		res, err := Reconcile(j, adj, now, c.newID)
		if err != nil {
			return nil, err
		}
		*j = *res.Journey
		return &mutation{
			value:   fmt.Sprintf("%d changes", len(res.Changes)),
			changes: res.Changes,
			message: res.Message,
			remote: func(ctx context.Context, j *models.Journey) error {
				return c.store.ApplyAdjustment(ctx, j, res.Changes)
			},
		}, nil
	})
}

// Adjust asks the adjustment collaborator to restructure the journey around what
// the user is actually doing and applies its proposal.
func (c *Coordinator) Adjust(ctx context.Context, activity, additionalContext string) (*Result, error) {
	const op = "adjust"

	activity = strings.TrimSpace(activity)
	if len([]rune(activity)) < minActivityLength {
		return nil, validationErr(op, "activity must be at least %d characters", minActivityLength)
	}
	if c.adjuster == nil {
		return nil, &Error{Kind: ErrGenerationFailure, Op: op, Err: fmt.Errorf("no adjustment collaborator configured")}
	}

	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	req, err := adjustmentRequest(snap, activity, additionalContext)
	if err != nil {
		return nil, &Error{Kind: ErrValidation, Op: op, ID: snap.ID, Err: err}
	}

	proposal, err := c.adjuster.Adjust(ctx, req)
	if err != nil {
		return nil, &Error{Kind: ErrGenerationFailure, Op: op, ID: snap.ID, Err: err}
	}
	if proposal == nil {
		return nil, &Error{Kind: ErrGenerationFailure, Op: op, ID: snap.ID, Err: fmt.Errorf("empty proposal")}
	}

	res, err := c.ApplyAdjustment(ctx, models.Adjustment{
		JourneyID:           snap.ID,
		Changes:             proposal.Changes,
		NewCurrentStepIndex: proposal.NewCurrentStepIndex,
		Message:             proposal.Message,
	})
	if err != nil {
		return nil, &Error{Kind: ErrGenerationFailure, Op: op, ID: snap.ID, Err: err}
	}
	return res, nil
}

// ChoosePath selects a branch at a decision step.
func (c *Coordinator) ChoosePath(ctx context.Context, decisionID, chosenID string) (*Result, error) {
	return c.mutate(ctx, "choose_path", decisionID, func(j *models.Journey, now time.Time) (*mutation, error) {
		if err := ChoosePath(j, decisionID, chosenID, now); err != nil {
			return nil, err
		}
		chosen, _ := j.Step(chosenID)
		changes := []string{fmt.Sprintf("Chose %q", chosen.DisplayTitle())}
		return &mutation{
			value:   chosenID,
			changes: changes,
			remote: func(ctx context.Context, j *models.Journey) error {
				return c.store.ApplyAdjustment(ctx, j, changes)
			},
		}, nil
	})
}

// Refresh replaces the local snapshot with the stored journey. Writes still in
// flight are left to finish; their rollback will find the view stale.
func (c *Coordinator) Refresh(ctx context.Context) (*models.Journey, error) {
	c.mu.Lock()
	if c.journey == nil {
		c.mu.Unlock()
		return nil, notFoundErr("refresh", "")
	}
	userID, journeyID := c.journey.UserID, c.journey.ID
	c.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	stored, err := c.store.GetJourney(rctx, userID, journeyID)
	if err != nil {
		return nil, remoteErr("refresh", journeyID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.journey = stored.Clone()
	refresh(c.journey, c.journey.UpdatedAt)
	c.rev++
	c.logger.Debug("journey refreshed", "journey_id", journeyID, "pending", len(c.pending))
	return c.journey.Clone(), nil
}

// Delete removes the journey from the store once every pending write has settled.
// Deletion is not optimistic: the snapshot is dropped only after the store agrees.
func (c *Coordinator) Delete(ctx context.Context) error {
	c.inflight.Wait()

	c.mu.Lock()
	if c.journey == nil {
		c.mu.Unlock()
		return notFoundErr("delete", "")
	}
	userID, journeyID := c.journey.UserID, c.journey.ID
	c.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.DeleteJourney(rctx, userID, journeyID); err != nil {
		return remoteErr("delete", journeyID, err)
	}

	c.mu.Lock()
	c.journey = nil
	c.rev++
	c.mu.Unlock()
	c.logger.Info("journey deleted", "journey_id", journeyID)
	return nil
}

type mutation struct {
	value     string
	completed bool
	changes   []string
	message   string
	remote    func(ctx context.Context, j *models.Journey) error
}

func (c *Coordinator) mutate(ctx context.Context, op, key string, apply func(j *models.Journey, now time.Time) (*mutation, error)) (*Result, error) {
	c.mu.Lock()
	if c.journey == nil {
		c.mu.Unlock()
		return nil, notFoundErr(op, "")
	}
	before := c.journey.Clone()
	work := c.journey.Clone()
	now := c.now()
	m, err := apply(work, now)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	c.journey = work
	c.rev++
	rev := c.rev
	c.pending[key] = Pending{Op: op, Value: m.value, rev: rev}

	res := &Result{
		Journey:      work.Clone(),
		ETA:          Project(work, now),
		Signal:       DetectMilestone(before.OverallProgress, work.OverallProgress, m.completed),
		Changes:      m.changes,
		Message:      m.message,
		Confirmation: newConfirmation(),
	}
	sent := work.Clone()
	prev := c.tail
	c.tail = res.Confirmation
	c.inflight.Add(1)
	c.mu.Unlock()

	c.logger.Debug("mutation applied", "op", op, "journey_id", work.ID, "key", key, "rev", rev)

	go c.confirm(context.WithoutCancel(ctx), op, key, rev, before, sent, m.remote, prev, res.Confirmation)
	return res, nil
}

func (c *Coordinator) confirm(ctx context.Context, op, key string, rev uint64, before, sent *models.Journey, remote func(context.Context, *models.Journey) error, prev, conf *Confirmation) {
	defer c.inflight.Done()
	defer close(conf.done)

	if prev != nil {
		<-prev.done
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	err := remote(ctx, sent)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pending[key]; ok && p.rev == rev {
		delete(c.pending, key)
	}
	if err == nil {
		return
	}

	conf.err = remoteErr(op, key, err)
	c.logger.Warn("remote confirmation failed", "op", op, "journey_id", sent.ID, "key", key, "error", err)
	if c.rev != rev {
		c.logger.Warn("rollback suppressed, view is stale", "op", op, "journey_id", sent.ID, "rev", rev, "current_rev", c.rev)
		return
	}
	c.journey = before
	c.rev++
	c.logger.Info("rollback performed", "op", op, "journey_id", sent.ID, "key", key)
}

func remoteErr(op, id string, err error) error {
	return &Error{Kind: ErrRemoteFailure, Op: op, ID: id, Err: err}
}

type stepSummary struct {
	ID            string   `json:"id"`
	Order         int      `json:"order"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	PathType      string   `json:"path_type"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	EstimatedDays int      `json:"estimated_days"`
}

func adjustmentRequest(j *models.Journey, activity, additionalContext string) (AdjustmentRequest, error) {
	steps := make([]stepSummary, 0, len(j.Steps))
	for _, s := range j.Steps {
		steps = append(steps, stepSummary{
			ID:            s.ID,
			Order:         s.Order,
			Title:         s.DisplayTitle(),
			Status:        string(s.Status),
			PathType:      string(s.PathType),
			Prerequisites: s.Prerequisites,
			EstimatedDays: s.EstimatedDays,
		})
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return AdjustmentRequest{}, fmt.Errorf("serialize steps: %w", err)
	}

	req := AdjustmentRequest{
		GoalContent:       j.GoalContent,
		Steps:             string(b),
		CurrentStepIndex:  j.CurrentStepIndex(),
		Activity:          activity,
		AdditionalContext: additionalContext,
	}
	if cur := j.CurrentStep(); cur != nil {
		req.CurrentStepTitle = cur.DisplayTitle()
	}
	return req, nil
}
