package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
)

// timeFormat is the layout of every timestamp in tool output.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// Handler provides the dependencies needed by tool handlers.
type Handler struct {
	Service *journey.Service
	Logger  *slog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(svc *journey.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Service: svc,
		Logger:  logger,
	}
}

// JourneyRef selects a journey. An empty journey_id means the user's current journey.
type JourneyRef struct {
	UserID    string `json:"user_id" jsonschema:"The ID of the user who owns the journey"`
	JourneyID string `json:"journey_id,omitempty" jsonschema:"The journey ID. Defaults to the user's current journey"`
}

// StepView is the tool representation of a step.
type StepView struct {
	ID              string   `json:"id"`
	Order           int      `json:"order"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Status          string   `json:"status"`
	PathType        string   `json:"path_type"`
	Prerequisites   []string `json:"prerequisites,omitempty"`
	Alternatives    []string `json:"alternatives,omitempty"`
	EstimatedDays   int      `json:"estimated_days"`
	ActualDaysSpent *int     `json:"actual_days_spent,omitempty"`
	Notes           []string `json:"notes,omitempty"`
	Tips            []string `json:"tips,omitempty"`
	StartedAt       string   `json:"started_at,omitempty"`
	CompletedAt     string   `json:"completed_at,omitempty"`
}

// JourneyView is the tool representation of a journey.
type JourneyView struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Goal             string     `json:"goal"`
	Progress         float64    `json:"progress"`
	CurrentStepIndex int        `json:"current_step_index"`
	CurrentStepID    string     `json:"current_step_id,omitempty"`
	Complete         bool       `json:"complete"`
	Notes            string     `json:"notes,omitempty"`
	Steps            []StepView `json:"steps"`
	StartedAt        string     `json:"started_at"`
	UpdatedAt        string     `json:"updated_at"`
}

// MutationOutput is returned by every tool that changes a journey.
type MutationOutput struct {
	Journey   JourneyView                `json:"journey"`
	ETA       ETAView                    `json:"eta"`
	Signal    string                     `json:"signal,omitempty"`
	Milestone float64                    `json:"milestone,omitempty"`
	Changes   []string                   `json:"changes,omitempty"`
	Message   string                     `json:"message,omitempty"`
	Confirmed bool                       `json:"confirmed"`
	Pending   map[string]journey.Pending `json:"pending,omitempty"`
}

func stepView(s models.Step) StepView {
	v := StepView{
		ID:              s.ID,
		Order:           s.Order,
		Title:           s.DisplayTitle(),
		Description:     s.Description,
		Status:          string(s.Status),
		PathType:        string(s.PathType),
		Prerequisites:   s.Prerequisites,
		Alternatives:    s.Alternatives,
		EstimatedDays:   s.EstimatedDays,
		ActualDaysSpent: s.ActualDaysSpent,
		Notes:           s.Notes,
		StartedAt:       formatTime(s.StartedAt),
		CompletedAt:     formatTime(s.CompletedAt),
	}
	if s.Extension != nil {
		v.Tips = s.Extension.Tips
	}
	return v
}

func journeyView(j *models.Journey) JourneyView {
	v := JourneyView{
		ID:               j.ID,
		UserID:           j.UserID,
		Goal:             j.GoalContent,
		Progress:         j.OverallProgress,
		CurrentStepIndex: j.CurrentStepIndex(),
		Complete:         j.IsComplete(),
		Notes:            j.AINotes,
		Steps:            make([]StepView, 0, len(j.Steps)),
		StartedAt:        j.JourneyStartedAt.Format(timeFormat),
		UpdatedAt:        j.UpdatedAt.Format(timeFormat),
	}
	if cur := j.CurrentStep(); cur != nil {
		v.CurrentStepID = cur.ID
	}
	for _, s := range j.Steps {
		v.Steps = append(v.Steps, stepView(s))
	}
	return v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeFormat)
}

// coordinator opens the referenced journey.
func (h *Handler) coordinator(ctx context.Context, ref JourneyRef) (*journey.Coordinator, error) {
	if ref.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if ref.JourneyID == "" {
		return h.Service.Open(ctx, ref.UserID)
	}
	return h.Service.OpenJourney(ctx, ref.UserID, ref.JourneyID)
}

// mutationOutput turns an applied mutation into tool output. With wait set it
// blocks until the store confirmed the write and fails if it was rolled back.
func (h *Handler) mutationOutput(ctx context.Context, c *journey.Coordinator, res *journey.Result, wait bool) (MutationOutput, error) {
	out := MutationOutput{
		Journey:   journeyView(res.Journey),
		ETA:       etaView(res.ETA),
		Signal:    string(res.Signal.Kind),
		Milestone: res.Signal.Threshold,
		Changes:   res.Changes,
		Message:   res.Message,
	}
	if wait {
		if err := res.Confirmation.Wait(ctx); err != nil {
			return MutationOutput{}, fmt.Errorf("change was not saved and has been undone: %w", err)
		}
	}
	select {
	case <-res.Confirmation.Done():
		out.Confirmed = res.Confirmation.Err() == nil
	default:
	}
	if pending := c.Pending(); len(pending) > 0 {
		out.Pending = pending
	}
	return out, nil
}
