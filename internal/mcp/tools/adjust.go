package tools

import (
	"context"
	"fmt"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AdjustJourneyInput defines the input for the adjust_journey tool.
type AdjustJourneyInput struct {
	JourneyRef
	Activity string `json:"activity" jsonschema:"What the user has actually been doing (at least 5 characters)"`
	Context  string `json:"context,omitempty" jsonschema:"Anything else that should shape the adjustment"`
	Wait     bool   `json:"wait,omitempty" jsonschema:"Wait until the store has saved the change and fail if it could not"`
}

// ApplyAdjustmentInput defines the input for the apply_adjustment tool.
type ApplyAdjustmentInput struct {
	JourneyRef
	Changes             []models.ChangeOp `json:"changes" jsonschema:"Change operations applied in order: rename, skip, insert_after, update_status"`
	NewCurrentStepIndex *int              `json:"new_current_step_index,omitempty" jsonschema:"Index into the main path to treat as the current step"`
	Message             string            `json:"message,omitempty" jsonschema:"Message to show the user with the result"`
	Wait                bool              `json:"wait,omitempty" jsonschema:"Wait until the store has saved the change and fail if it could not"`
}

// AdjustJourneyTool returns the tool definition for adjust_journey.
func AdjustJourneyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "adjust_journey",
		Description: "Describe what the user is actually doing and let the planner restructure the journey around it (rename, skip, insert or re-status steps). Returns the adjusted journey, a summary of the changes and a message for the user.",
	}
}

// ApplyAdjustmentTool returns the tool definition for apply_adjustment.
func ApplyAdjustmentTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "apply_adjustment",
		Description: "Apply a batch of change operations to a journey as one unit: either every change applies or none does. An inserted step can be referenced by later operations through its step.ref.",
	}
}

// HandleAdjustJourney handles the adjust_journey tool call.
func (h *Handler) HandleAdjustJourney(ctx context.Context, req *mcp.CallToolRequest, input AdjustJourneyInput) (*mcp.CallToolResult, MutationOutput, error) {
	return h.journeyMutation(ctx, "adjust_journey", input.JourneyRef, input.Wait, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.Adjust(ctx, input.Activity, input.Context)
	})
}

// HandleApplyAdjustment handles the apply_adjustment tool call.
func (h *Handler) HandleApplyAdjustment(ctx context.Context, req *mcp.CallToolRequest, input ApplyAdjustmentInput) (*mcp.CallToolResult, MutationOutput, error) {
	for i, ch := range input.Changes {
		if err := ch.Validate(); err != nil {
			return nil, MutationOutput{}, fmt.Errorf("change %d: %w", i, err)
		}
	}
	return h.journeyMutation(ctx, "apply_adjustment", input.JourneyRef, input.Wait, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.ApplyAdjustment(ctx, models.Adjustment{
			JourneyID:           c.JourneyID(),
			Changes:             input.Changes,
			NewCurrentStepIndex: input.NewCurrentStepIndex,
			Message:             input.Message,
		})
	})
}

func (h *Handler) journeyMutation(ctx context.Context, tool string, ref JourneyRef, wait bool, apply func(*journey.Coordinator) (*journey.Result, error)) (*mcp.CallToolResult, MutationOutput, error) {
	h.Logger.Info(tool, "user_id", ref.UserID, "journey_id", ref.JourneyID)

	c, err := h.coordinator(ctx, ref)
	if err != nil {
		h.Logger.Error(tool+" failed", "user_id", ref.UserID, "error", err)
		return nil, MutationOutput{}, fmt.Errorf("failed to open journey: %w", err)
	}
	res, err := apply(c)
	if err != nil {
		h.Logger.Error(tool+" failed", "journey_id", c.JourneyID(), "error", err)
		return nil, MutationOutput{}, fmt.Errorf("%s: %w", tool, err)
	}
	out, err := h.mutationOutput(ctx, c, res, wait)
	if err != nil {
		h.Logger.Error(tool+" failed", "journey_id", c.JourneyID(), "error", err)
		return nil, MutationOutput{}, err
	}

	h.Logger.Info(tool+" complete", "journey_id", out.Journey.ID, "changes", len(out.Changes))
	return nil, out, nil
}
