package llm

import (
	"fmt"
	"strings"

	"github.com/fitz/trailmap/internal/journey"
)

const generationInstructions = `You plan goal journeys. Break the user's goal into a map of concrete steps.

Rules:
- 5 to 7 steps on the main path, in the order they should be done.
- Optionally 1 or 2 alternative steps at a real decision point, with "path_type": "alternative".
- Each step is specific, builds on earlier ones and has a realistic estimate in days (usually 7 to 30).
- The goal itself is the destination, never a step.
- "prerequisites" lists refs of earlier steps. A step's ref is "step_<index>" counting from 0.
- A decision step may list the refs of its competing options in "alternatives".

Answer with JSON only, exactly in this shape:
{
  "summary": "One or two encouraging sentences about the journey",
  "steps": [
    {
      "title": "Short actionable title",
      "description": "Two or three sentences on what the step involves",
      "estimated_days": 14,
      "path_type": "main",
      "prerequisites": [],
      "tips": ["A helpful tip"]
    }
  ]
}`

const adjustmentInstructions = `You adjust a user's goal journey to match what they are actually doing.

Decide whether:
1. the activity matches the current step, so its title should say so (rename)
2. the user is ahead, so steps should be finished or skipped (update_status, skip)
3. the user needs extra work, so a step should be added (insert_after)

Be conservative and only propose changes the activity clearly supports.
Statuses move locked -> available -> in_progress -> completed; a step can only be completed once it is in_progress.

Answer with JSON only, exactly in this shape:
{
  "changes": [
    {"type": "rename", "step_id": "<id>", "new_title": "..."},
    {"type": "skip", "step_id": "<id>", "reason": "..."},
    {"type": "update_status", "step_id": "<id>", "new_status": "in_progress"},
    {"type": "insert_after", "after_step_id": "<id>", "step": {"ref": "new_1", "title": "...", "description": "...", "estimated_days": 7}}
  ],
  "new_current_step_index": 0,
  "message": "A short encouraging message about the adjustment"
}
A step inserted earlier in the list can be referred to by its ref in later changes.`

// GenerationPrompt renders the prompt sent to the model for a new journey.
func GenerationPrompt(req journey.GenerationRequest) string {
	var b strings.Builder
	b.WriteString(generationInstructions)
	b.WriteString("\n\nGOAL: ")
	b.WriteString(req.GoalContent)
	b.WriteString("\nWHY IT MATTERS: ")
	b.WriteString(orDefault(req.GoalReason, "not specified"))

	var extra []string
	if req.Identity != "" {
		extra = append(extra, "The user identifies as: "+req.Identity)
	}
	if len(req.Challenges) > 0 {
		extra = append(extra, "Their challenges: "+strings.Join(req.Challenges, ", "))
	}
	b.WriteString("\nCONTEXT:\n")
	b.WriteString(orDefault(strings.Join(extra, "\n"), "none given"))
	return b.String()
}

// AdjustmentPrompt renders the prompt sent to the model to restructure a journey.
func AdjustmentPrompt(req journey.AdjustmentRequest) string {
	var b strings.Builder
	b.WriteString(adjustmentInstructions)
	fmt.Fprintf(&b, "\n\nGOAL: %s\n", req.GoalContent)
	fmt.Fprintf(&b, "CURRENT STEP: %s (index %d)\n", orDefault(req.CurrentStepTitle, "none"), req.CurrentStepIndex)
	fmt.Fprintf(&b, "STEPS (JSON): %s\n", req.Steps)
	fmt.Fprintf(&b, "WHAT THE USER IS DOING: %s\n", req.Activity)
	if req.AdditionalContext != "" {
		fmt.Fprintf(&b, "ADDITIONAL CONTEXT: %s\n", req.AdditionalContext)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
