package tools

import (
	"context"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RenameStepInput defines the input for the rename_step tool.
type RenameStepInput struct {
	StepInput
	Title string `json:"title" jsonschema:"The user's own title for the step. Empty restores the generated title"`
}

// AddStepNoteInput defines the input for the add_step_note tool.
type AddStepNoteInput struct {
	StepInput
	Note string `json:"note" jsonschema:"The note to append"`
}

// RenameStepTool returns the tool definition for rename_step.
func RenameStepTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "rename_step",
		Description: "Give a step a custom title. The generated title is kept and shown again when the custom title is cleared.",
	}
}

// AddStepNoteTool returns the tool definition for add_step_note.
func AddStepNoteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "add_step_note",
		Description: "Append a free-text note to a step, e.g. what went well or what got in the way.",
	}
}

// HandleRenameStep handles the rename_step tool call.
func (h *Handler) HandleRenameStep(ctx context.Context, req *mcp.CallToolRequest, input RenameStepInput) (*mcp.CallToolResult, MutationOutput, error) {
	return h.stepMutation(ctx, "rename_step", input.StepInput, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.RenameStep(ctx, input.StepID, input.Title)
	})
}

// HandleAddStepNote handles the add_step_note tool call.
func (h *Handler) HandleAddStepNote(ctx context.Context, req *mcp.CallToolRequest, input AddStepNoteInput) (*mcp.CallToolResult, MutationOutput, error) {
	return h.stepMutation(ctx, "add_step_note", input.StepInput, func(c *journey.Coordinator) (*journey.Result, error) {
		return c.AddNote(ctx, input.StepID, input.Note)
	})
}
