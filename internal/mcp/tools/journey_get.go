package tools

import (
	"context"
	"fmt"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetJourneyInput defines the input for the get_journey tool.
type GetJourneyInput struct {
	JourneyRef
	Refresh bool `json:"refresh,omitempty" jsonschema:"Reload the journey from the store, discarding the cached copy"`
}

// GetJourneyOutput defines the output for the get_journey tool.
type GetJourneyOutput struct {
	Journey JourneyView                `json:"journey"`
	ETA     ETAView                    `json:"eta"`
	Pending map[string]journey.Pending `json:"pending,omitempty"`
}

// ETAView is the tool representation of a projection.
type ETAView struct {
	EstimatedCompletionDate string  `json:"estimated_completion_date"`
	TotalEstimatedDays      int     `json:"total_estimated_days"`
	RemainingDays           int     `json:"remaining_days"`
	DaysElapsed             int     `json:"days_elapsed"`
	StepsCompleted          int     `json:"steps_completed"`
	StepsRemaining          int     `json:"steps_remaining"`
	AverageDaysPerStep      float64 `json:"average_days_per_step"`
	VelocityScore           float64 `json:"velocity_score"`
	Pace                    string  `json:"pace"`
	DisplayText             string  `json:"display_text"`
}

func etaView(e models.ETA) ETAView {
	return ETAView{
		EstimatedCompletionDate: e.EstimatedCompletionDate.Format("2006-01-02"),
		TotalEstimatedDays:      e.TotalEstimatedDays,
		RemainingDays:           e.RemainingDays,
		DaysElapsed:             e.DaysElapsed,
		StepsCompleted:          e.StepsCompleted,
		StepsRemaining:          e.StepsRemaining,
		AverageDaysPerStep:      e.AverageDaysPerStep,
		VelocityScore:           e.VelocityScore,
		Pace:                    string(e.Pace),
		DisplayText:             e.DisplayText,
	}
}

// GetJourneyTool returns the tool definition for get_journey.
func GetJourneyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_journey",
		Description: "Get a journey with all of its steps, the current step, overall progress, projected completion and any changes not yet confirmed by the store.",
	}
}

// HandleGetJourney handles the get_journey tool call.
func (h *Handler) HandleGetJourney(ctx context.Context, req *mcp.CallToolRequest, input GetJourneyInput) (*mcp.CallToolResult, GetJourneyOutput, error) {
	h.Logger.Info("get_journey", "user_id", input.UserID, "journey_id", input.JourneyID)

	c, err := h.coordinator(ctx, input.JourneyRef)
	if err != nil {
		h.Logger.Error("get_journey failed", "user_id", input.UserID, "error", err)
		return nil, GetJourneyOutput{}, fmt.Errorf("failed to get journey: %w", err)
	}

	var j *models.Journey
	if input.Refresh {
		j, err = c.Refresh(ctx)
	} else {
		j, err = c.Snapshot()
	}
	if err != nil {
		h.Logger.Error("get_journey failed", "user_id", input.UserID, "error", err)
		return nil, GetJourneyOutput{}, fmt.Errorf("failed to get journey: %w", err)
	}
	eta, err := c.ETA()
	if err != nil {
		return nil, GetJourneyOutput{}, err
	}

	out := GetJourneyOutput{Journey: journeyView(j), ETA: etaView(eta)}
	if pending := c.Pending(); len(pending) > 0 {
		out.Pending = pending
	}

	h.Logger.Info("get_journey complete", "journey_id", j.ID, "progress", j.OverallProgress)
	return nil, out, nil
}

// GetETAInput defines the input for the get_eta tool.
type GetETAInput struct {
	JourneyRef
}

// GetETATool returns the tool definition for get_eta.
func GetETATool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_eta",
		Description: "Project when the journey will be finished from the remaining estimates and the user's pace so far. Returns the completion date, remaining days, velocity score, pace (ahead|on track|a bit behind|pick up pace) and a display text.",
	}
}

// HandleGetETA handles the get_eta tool call.
func (h *Handler) HandleGetETA(ctx context.Context, req *mcp.CallToolRequest, input GetETAInput) (*mcp.CallToolResult, ETAView, error) {
	h.Logger.Info("get_eta", "user_id", input.UserID, "journey_id", input.JourneyID)

	c, err := h.coordinator(ctx, input.JourneyRef)
	if err != nil {
		h.Logger.Error("get_eta failed", "user_id", input.UserID, "error", err)
		return nil, ETAView{}, fmt.Errorf("failed to get journey: %w", err)
	}
	eta, err := c.ETA()
	if err != nil {
		return nil, ETAView{}, fmt.Errorf("failed to project journey: %w", err)
	}

	h.Logger.Info("get_eta complete", "journey_id", c.JourneyID(), "remaining_days", eta.RemainingDays)
	return nil, etaView(eta), nil
}
