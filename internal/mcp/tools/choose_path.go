package tools

import (
	"context"
	"fmt"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ChoosePathInput defines the input for the choose_path tool.
type ChoosePathInput struct {
	JourneyRef
	DecisionStepID string `json:"decision_step_id" jsonschema:"The step where the journey branches"`
	ChosenStepID   string `json:"chosen_step_id" jsonschema:"The first step of the branch to follow"`
	Wait           bool   `json:"wait,omitempty" jsonschema:"Wait until the store has saved the change and fail if it could not"`
}

// ChoosePathTool returns the tool definition for choose_path.
func ChoosePathTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "choose_path",
		Description: "Pick which branch to follow after a decision step. The chosen branch joins the main path and the other branches become alternatives. Not allowed once a step on an affected branch has been started.",
	}
}

// HandleChoosePath handles the choose_path tool call.
func (h *Handler) HandleChoosePath(ctx context.Context, req *mcp.CallToolRequest, input ChoosePathInput) (*mcp.CallToolResult, MutationOutput, error) {
	if input.DecisionStepID == "" || input.ChosenStepID == "" {
		return nil, MutationOutput{}, fmt.Errorf("decision_step_id and chosen_step_id are required")
	}
	return h.journeyMutation(ctx, "choose_path", input.JourneyRef, input.Wait, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.ChoosePath(ctx, input.DecisionStepID, input.ChosenStepID)
	})
}
