package journey

import (
	"context"

	"github.com/fitz/trailmap/internal/models"
)

// GenerationRequest is what the generation collaborator needs to draft a journey.
type GenerationRequest struct {
	UserID      string   `json:"user_id"`
	GoalID      string   `json:"goal_id,omitempty"`
	GoalContent string   `json:"goal_content"`
	GoalReason  string   `json:"goal_reason,omitempty"`
	Identity    string   `json:"identity,omitempty"`
	Challenges  []string `json:"challenges,omitempty"`
}

// GenerationOutput is the ordered step set returned by the generation collaborator.
// Prerequisites refer to other specs of the same batch by ref ("step_<index>" when
// a spec has no explicit ref).
type GenerationOutput struct {
	Steps   []models.StepSpec `json:"steps"`
	Summary string            `json:"summary,omitempty"`
}

// Generator drafts the initial steps of a journey.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationOutput, error)
}

// AdjustmentRequest is what the adjustment collaborator sees of a journey.
type AdjustmentRequest struct {
	GoalContent       string `json:"goal_content"`
	Steps             string `json:"steps"`
	CurrentStepTitle  string `json:"current_step_title"`
	CurrentStepIndex  int    `json:"current_step_index"`
	Activity          string `json:"activity"`
	AdditionalContext string `json:"additional_context,omitempty"`
}

// AdjustmentProposal is the change batch proposed by the adjustment collaborator.
type AdjustmentProposal struct {
	Changes             []models.ChangeOp `json:"changes"`
	NewCurrentStepIndex *int              `json:"new_current_step_index,omitempty"`
	Message             string            `json:"message"`
}

// Adjuster proposes restructurings of a journey from what the user is actually doing.
type Adjuster interface {
	Adjust(ctx context.Context, req AdjustmentRequest) (*AdjustmentProposal, error)
}

// Store is the remote persistence collaborator. Every mutating call receives the
// journey as it should look after the intent, so repeating a call converges on the
// same stored state. Missing journeys are reported as ErrNotFound.
type Store interface {
	CreateJourney(ctx context.Context, j *models.Journey) error
	GetCurrentJourney(ctx context.Context, userID string) (*models.Journey, error)
	GetJourney(ctx context.Context, userID, journeyID string) (*models.Journey, error)
	UpdateStepStatus(ctx context.Context, j *models.Journey, stepID, note string) error
	UpdateStepTitle(ctx context.Context, j *models.Journey, stepID string) error
	AppendNote(ctx context.Context, j *models.Journey, stepID string) error
	ApplyAdjustment(ctx context.Context, j *models.Journey, changes []string) error
	DeleteJourney(ctx context.Context, userID, journeyID string) error
}
