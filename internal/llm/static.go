package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
)

// Static is the collaborator used when no model is configured. It always returns
// the same generic plan and never proposes adjustments.
type Static struct{}

// FallbackPlan is the generic five step plan returned by Static.
func FallbackPlan() []models.StepSpec {
	return []models.StepSpec{
		{Title: "Research and planning", Description: "Find out what the goal takes and sketch a plan.", EstimatedDays: 7},
		{Title: "Build foundational skills", Description: "Learn the core skills and knowledge the goal depends on.", EstimatedDays: 21, Prerequisites: []string{"step_0"}},
		{Title: "Practice and apply", Description: "Use what you learned in real situations.", EstimatedDays: 30, Prerequisites: []string{"step_1"}},
		{Title: "Refine and improve", Description: "Adjust your approach based on what practice taught you.", EstimatedDays: 21, Prerequisites: []string{"step_2"}},
		{Title: "Final push", Description: "Make the last concentrated effort to reach the goal.", EstimatedDays: 14, Prerequisites: []string{"step_3"}},
	}
}

// Generate implements journey.Generator.
func (Static) Generate(ctx context.Context, req journey.GenerationRequest) (*journey.GenerationOutput, error) {
	return &journey.GenerationOutput{
		Steps:   FallbackPlan(),
		Summary: fmt.Sprintf("A starter plan toward %q. Adjust it as you learn what works.", req.GoalContent),
	}, nil
}

// Adjust implements journey.Adjuster with an empty proposal.
func (Static) Adjust(ctx context.Context, req journey.AdjustmentRequest) (*journey.AdjustmentProposal, error) {
	return &journey.AdjustmentProposal{
		Message: "Automatic adjustments are not configured, so your journey stays as it is.",
	}, nil
}

// Fallback uses Primary and, when it fails, the static plan.
type Fallback struct {
	Primary journey.Generator
	Logger  *slog.Logger
}

// Generate implements journey.Generator.
func (f Fallback) Generate(ctx context.Context, req journey.GenerationRequest) (*journey.GenerationOutput, error) {
	out, err := f.Primary.Generate(ctx, req)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("generation failed, using fallback plan", "user_id", req.UserID, "error", err)
	return Static{}.Generate(ctx, req)
}
