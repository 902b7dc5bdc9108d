package tools

import (
	"context"
	"fmt"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GenerateJourneyInput defines the input for the generate_journey tool.
type GenerateJourneyInput struct {
	UserID     string   `json:"user_id" jsonschema:"The ID of the user the journey is for"`
	GoalID     string   `json:"goal_id,omitempty" jsonschema:"Optional ID of the goal in the caller's system"`
	Goal       string   `json:"goal" jsonschema:"What the user wants to achieve (at least 10 characters)"`
	Reason     string   `json:"reason,omitempty" jsonschema:"Why the goal matters to the user"`
	Identity   string   `json:"identity,omitempty" jsonschema:"Who the user is, e.g. their situation or background"`
	Challenges []string `json:"challenges,omitempty" jsonschema:"Obstacles the user expects"`
}

// GenerateJourneyOutput defines the output for the generate_journey tool.
type GenerateJourneyOutput struct {
	Journey JourneyView `json:"journey"`
	ETA     ETAView     `json:"eta"`
}

// GenerateJourneyTool returns the tool definition for generate_journey.
func GenerateJourneyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "generate_journey",
		Description: "Draft a step-by-step journey toward a goal and save it as the user's current journey. Returns the journey with its steps (id, title, status, path_type, prerequisites, estimated_days) and the projected completion.",
	}
}

// HandleGenerateJourney handles the generate_journey tool call.
func (h *Handler) HandleGenerateJourney(ctx context.Context, req *mcp.CallToolRequest, input GenerateJourneyInput) (*mcp.CallToolResult, GenerateJourneyOutput, error) {
	h.Logger.Info("generate_journey", "user_id", input.UserID)

	c, err := h.Service.Generate(ctx, journey.GenerationRequest{
		UserID:      input.UserID,
		GoalID:      input.GoalID,
		GoalContent: input.Goal,
		GoalReason:  input.Reason,
		Identity:    input.Identity,
		Challenges:  input.Challenges,
	})
	if err != nil {
		h.Logger.Error("generate_journey failed", "user_id", input.UserID, "error", err)
		return nil, GenerateJourneyOutput{}, fmt.Errorf("failed to generate journey: %w", err)
	}

	j, err := c.Snapshot()
	if err != nil {
		return nil, GenerateJourneyOutput{}, err
	}
	eta, err := c.ETA()
	if err != nil {
		return nil, GenerateJourneyOutput{}, err
	}

	h.Logger.Info("generate_journey complete", "journey_id", j.ID, "steps", len(j.Steps))
	return nil, GenerateJourneyOutput{Journey: journeyView(j), ETA: etaView(eta)}, nil
}
