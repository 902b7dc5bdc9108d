package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DeleteJourneyInput defines the input for the delete_journey tool.
type DeleteJourneyInput struct {
	UserID    string `json:"user_id" jsonschema:"The ID of the user who owns the journey"`
	JourneyID string `json:"journey_id" jsonschema:"The ID of the journey to delete"`
}

// DeleteJourneyOutput defines the output for the delete_journey tool.
type DeleteJourneyOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// DeleteJourneyTool returns the tool definition for delete_journey.
func DeleteJourneyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "delete_journey",
		Description: "Permanently delete a journey and all of its steps. Waits for unsaved changes to settle first. This operation cannot be undone.",
	}
}

// HandleDeleteJourney handles the delete_journey tool call.
func (h *Handler) HandleDeleteJourney(ctx context.Context, req *mcp.CallToolRequest, input DeleteJourneyInput) (*mcp.CallToolResult, DeleteJourneyOutput, error) {
	h.Logger.Info("delete_journey", "user_id", input.UserID, "journey_id", input.JourneyID)

	if input.UserID == "" || input.JourneyID == "" {
		return nil, DeleteJourneyOutput{}, fmt.Errorf("user_id and journey_id are required")
	}

	if err := h.Service.Delete(ctx, input.UserID, input.JourneyID); err != nil {
		h.Logger.Error("delete_journey failed", "journey_id", input.JourneyID, "error", err)
		return nil, DeleteJourneyOutput{ID: input.JourneyID}, fmt.Errorf("failed to delete journey: %w", err)
	}

	h.Logger.Info("delete_journey complete", "journey_id", input.JourneyID)
	return nil, DeleteJourneyOutput{ID: input.JourneyID, Deleted: true}, nil
}
