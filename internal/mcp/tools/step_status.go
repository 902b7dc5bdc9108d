package tools

import (
	"context"
	"fmt"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StepInput selects a step of a journey.
type StepInput struct {
	JourneyRef
	StepID string `json:"step_id" jsonschema:"The ID of the step"`
	Wait   bool   `json:"wait,omitempty" jsonschema:"Wait until the store has saved the change and fail if it could not"`
}

// StartStepInput defines the input for the start_step tool.
type StartStepInput struct {
	StepInput
}

// CompleteStepInput defines the input for the complete_step tool.
type CompleteStepInput struct {
	StepInput
	ActualDays *int   `json:"actual_days,omitempty" jsonschema:"Days the step actually took. Derived from when it was started if omitted"`
	Note       string `json:"note,omitempty" jsonschema:"Optional note to record on the step"`
}

// SkipStepInput defines the input for the skip_step tool.
type SkipStepInput struct {
	StepInput
	Note string `json:"note,omitempty" jsonschema:"Optional reason for skipping"`
}

// UpdateStepStatusInput defines the input for the update_step_status tool.
type UpdateStepStatusInput struct {
	StepInput
	Status     string `json:"status" jsonschema:"New status: locked, available, in_progress, completed, skipped, alternative"`
	ActualDays *int   `json:"actual_days,omitempty" jsonschema:"Days the step actually took, used when completing"`
	Note       string `json:"note,omitempty" jsonschema:"Optional note to record on the step"`
}

// StartStepTool returns the tool definition for start_step.
func StartStepTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "start_step",
		Description: "Start working on an available step (available -> in_progress). The change is applied immediately and saved in the background.",
	}
}

// CompleteStepTool returns the tool definition for complete_step.
func CompleteStepTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "complete_step",
		Description: "Mark an in-progress step completed. Unlocks the steps that depended on it and reports a milestone signal when progress crosses 25%, 50%, 75% or 100%.",
	}
}

// SkipStepTool returns the tool definition for skip_step.
func SkipStepTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "skip_step",
		Description: "Skip a step that is not completed. Steps that depended on it inherit its prerequisites instead, and skipped steps no longer count toward progress.",
	}
}

// UpdateStepStatusTool returns the tool definition for update_step_status.
func UpdateStepStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "update_step_status",
		Description: "Move a step to any status the step lifecycle allows. Invalid transitions are rejected without changing the journey.",
	}
}

// HandleStartStep handles the start_step tool call.
func (h *Handler) HandleStartStep(ctx context.Context, req *mcp.CallToolRequest, input StartStepInput) (*mcp.CallToolResult, MutationOutput, error) {
	return h.stepMutation(ctx, "start_step", input.StepInput, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.StartStep(ctx, input.StepID)
	})
}

// HandleCompleteStep handles the complete_step tool call.
func (h *Handler) HandleCompleteStep(ctx context.Context, req *mcp.CallToolRequest, input CompleteStepInput) (*mcp.CallToolResult, MutationOutput, error) {
	return h.stepMutation(ctx, "complete_step", input.StepInput, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.CompleteStep(ctx, input.StepID, input.ActualDays, input.Note)
	})
}

// HandleSkipStep handles the skip_step tool call.
func (h *Handler) HandleSkipStep(ctx context.Context, req *mcp.CallToolRequest, input SkipStepInput) (*mcp.CallToolResult, MutationOutput, error) {
	return h.stepMutation(ctx, "skip_step", input.StepInput, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.SkipStep(ctx, input.StepID, input.Note)
	})
}

// HandleUpdateStepStatus handles the update_step_status tool call.
func (h *Handler) HandleUpdateStepStatus(ctx context.Context, req *mcp.CallToolRequest, input UpdateStepStatusInput) (*mcp.CallToolResult, MutationOutput, error) {
	status, err := models.ParseStepStatus(input.Status)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return h.stepMutation(ctx, "update_step_status", input.StepInput, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.UpdateStepStatus(ctx, input.StepID, status, journey.TransitionOptions{
			ActualDaysSpent: input.ActualDays,
			Note:            input.Note,
		})
	})
}

// stepMutation runs one coordinator mutation on the referenced step.
func (h *Handler) stepMutation(ctx context.Context, tool string, input StepInput, apply func(*journey.Coordinator) (*journey.Result, error)) (*mcp.CallToolResult, MutationOutput, error) {
	h.Logger.Info(tool, "user_id", input.UserID, "journey_id", input.JourneyID, "step_id", input.StepID)

	if input.StepID == "" {
		return nil, MutationOutput{}, fmt.Errorf("step_id is required")
	}
	c, err := h.coordinator(ctx, input.JourneyRef)
	if err != nil {
		h.Logger.Error(tool+" failed", "user_id", input.UserID, "error", err)
		return nil, MutationOutput{}, fmt.Errorf("failed to open journey: %w", err)
	}

	res, err := apply(c)
	if err != nil {
		h.Logger.Error(tool+" failed", "step_id", input.StepID, "error", err)
		return nil, MutationOutput{}, fmt.Errorf("%s: %w", tool, err)
	}
	out, err := h.mutationOutput(ctx, c, res, input.Wait)
	if err != nil {
		h.Logger.Error(tool+" failed", "step_id", input.StepID, "error", err)
		return nil, MutationOutput{}, err
	}

	h.Logger.Info(tool+" complete", "step_id", input.StepID, "progress", out.Journey.Progress, "signal", out.Signal)
	return nil, out, nil
}
