package journey

import (
	"fmt"
	"slices"
	"time"

	"github.com/fitz/trailmap/internal/models"
)

// AdjustmentResult is the outcome of a reconciled adjustment batch.
type AdjustmentResult struct {
	Journey *models.Journey
	Changes []string
	Message string
}

// Reconcile applies an adjustment batch to a copy of j, in order and all-or-nothing.
// j itself is never modified; on error no result is returned.
//
// Later operations may refer to a step inserted earlier in the same batch by the
// ref given in its spec.
func Reconcile(j *models.Journey, adj models.Adjustment, now time.Time, newID func() string) (*AdjustmentResult, error) {
	const op = "reconcile"

	if adj.JourneyID != "" && adj.JourneyID != j.ID {
		return nil, notFoundErr(op, adj.JourneyID)
	}
	for i, c := range adj.Changes {
		if err := c.Validate(); err != nil {
			return nil, validationErr(op, "change %d: %v", i, err)
		}
	}

	work := j.Clone()
	r := &reconciler{j: work, now: now, newID: newID, refs: make(map[string]string)}
	for i, c := range adj.Changes {
		desc, err := r.apply(c)
		if err != nil {
			return nil, fmt.Errorf("change %d (%s): %w", i, c.Kind, err)
		}
		if desc != "" {
			r.changes = append(r.changes, desc)
		}
	}

	if err := validateGraph(work); err != nil {
		return nil, &Error{Kind: ErrValidation, Op: op, ID: work.ID, Err: err}
	}

	if adj.NewCurrentStepIndex != nil {
		idx := 0
		if n := len(work.MainPath()); n > 0 {
			idx = min(max(*adj.NewCurrentStepIndex, 0), n-1)
		}
		work.CurrentStepOverride = &idx
	}
	refresh(work, now)

	return &AdjustmentResult{Journey: work, Changes: r.changes, Message: adj.Message}, nil
}

type reconciler struct {
	j       *models.Journey
	now     time.Time
	newID   func() string
	refs    map[string]string
	changes []string
}

func (r *reconciler) resolve(id string) string {
	if real, ok := r.refs[id]; ok {
		return real
	}
	return id
}

func (r *reconciler) step(id string) (*models.Step, error) {
	s, ok := r.j.Step(r.resolve(id))
	if !ok {
		return nil, notFoundErr("reconcile", id)
	}
	return s, nil
}

func (r *reconciler) apply(c models.ChangeOp) (string, error) {
	switch c.Kind {
	case models.ChangeRename:
		s, err := r.step(c.StepID)
		if err != nil {
			return "", err
		}
		old := s.DisplayTitle()
		s.CustomTitle = c.NewTitle
		r.j.UpdatedAt = r.now
		return fmt.Sprintf("Renamed %q to %q", old, c.NewTitle), nil

	case models.ChangeSkip:
		s, err := r.step(c.StepID)
		if err != nil {
			return "", err
		}
		switch s.Status {
		case models.StepStatusCompleted, models.StepStatusSkipped, models.StepStatusAlternative:
			return "", nil
		}
		if _, err := Transition(r.j, s.ID, models.StepStatusSkipped, r.now, TransitionOptions{}); err != nil {
			return "", err
		}
		return withReason(fmt.Sprintf("Skipped %q", s.DisplayTitle()), c.Reason), nil

	case models.ChangeInsertAfter:
		return r.insertAfter(c)

	case models.ChangeUpdateStatus:
		s, err := r.step(c.StepID)
		if err != nil {
			return "", err
		}
		if _, err := Transition(r.j, s.ID, c.NewStatus, r.now, TransitionOptions{}); err != nil {
			return "", err
		}
		return withReason(fmt.Sprintf("Moved %q to %s", s.DisplayTitle(), c.NewStatus), c.Reason), nil
	}
	return "", validationErr("reconcile", "unknown change operation type %q", c.Kind)
}

func (r *reconciler) insertAfter(c models.ChangeOp) (string, error) {
	after, err := r.step(c.AfterStepID)
	if err != nil {
		return "", err
	}
	spec := c.Step

	var prereqs []string
	for _, p := range spec.Prerequisites {
		ps, err := r.step(p)
		if err != nil {
			return "", err
		}
		prereqs = append(prereqs, ps.ID)
	}
	var alts []string
	for _, a := range spec.Alternatives {
		as, err := r.step(a)
		if err != nil {
			return "", err
		}
		alts = append(alts, as.ID)
	}

	// Decide availability against the graph as it is before the insert.
	var current string
	if cur := r.j.CurrentStep(); cur != nil {
		current = cur.ID
	}
	afterID, afterOrder, afterTitle := after.ID, after.Order, after.DisplayTitle()

	for i := range r.j.Steps {
		if r.j.Steps[i].Order > afterOrder {
			r.j.Steps[i].Order++
		}
	}

	s := models.Step{
		ID:            r.newID(),
		JourneyID:     r.j.ID,
		Order:         afterOrder + 1,
		Title:         spec.Title,
		Description:   spec.Description,
		Prerequisites: prereqs,
		Alternatives:  alts,
		Status:        models.StepStatusLocked,
		PathType:      models.PathTypeMain,
		EstimatedDays: estimateOrDefault(spec.EstimatedDays),
		Extension:     extensionFor(spec.Tips),
		CreatedAt:     r.now,
	}
	if afterID == current && prerequisitesMet(r.j, &s) {
		s.Status = models.StepStatusAvailable
	}
	r.j.Steps = append(r.j.Steps, s)
	if spec.Ref != "" {
		r.refs[spec.Ref] = s.ID
	}
	r.j.UpdatedAt = r.now
	return withReason(fmt.Sprintf("Inserted %q after %q", s.Title, afterTitle), c.Reason), nil
}

func withReason(desc, reason string) string {
	if reason == "" {
		return desc
	}
	return desc + ": " + reason
}

func estimateOrDefault(days int) int {
	if days <= 0 {
		return int(DefaultStepDays)
	}
	return days
}

func extensionFor(tips []string) *models.StepExtension {
	if len(tips) == 0 {
		return nil
	}
	return &models.StepExtension{Version: models.CurrentExtensionVersion, Tips: slices.Clone(tips)}
}
