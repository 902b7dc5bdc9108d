package journey

import (
	"fmt"
	"strings"
	"time"

	"github.com/fitz/trailmap/internal/models"
)

const (
	minGoalLength     = 10
	minActivityLength = 5
)

// ValidateGenerationRequest rejects requests the generator should never see.
func ValidateGenerationRequest(req GenerationRequest) error {
	const op = "generate"
	if strings.TrimSpace(req.UserID) == "" {
		return validationErr(op, "user id is required")
	}
	if len([]rune(strings.TrimSpace(req.GoalContent))) < minGoalLength {
		return validationErr(op, "goal must be at least %d characters", minGoalLength)
	}
	return nil
}

// BuildJourney turns generator output into a new journey with real ids. The first
// main path step whose prerequisites are met starts out available.
func BuildJourney(req GenerationRequest, out *GenerationOutput, now time.Time, newID func() string) (*models.Journey, error) {
	const op = "build"

	if out == nil || len(out.Steps) == 0 {
		return nil, &Error{Kind: ErrGenerationFailure, Op: op, Err: fmt.Errorf("generator returned no steps")}
	}

	j := &models.Journey{
		ID:               newID(),
		UserID:           req.UserID,
		GoalID:           req.GoalID,
		GoalContent:      req.GoalContent,
		GoalReason:       req.GoalReason,
		CreatedAt:        now,
		UpdatedAt:        now,
		JourneyStartedAt: now,
		AIGenerated:      true,
		AINotes:          out.Summary,
	}

	refs := make(map[string]string, len(out.Steps))
	for i, spec := range out.Steps {
		id := newID()
		refs[fmt.Sprintf("step_%d", i)] = id
		if spec.Ref != "" {
			if _, dup := refs[spec.Ref]; dup {
				return nil, generationErr(op, "duplicate step ref %q", spec.Ref)
			}
			refs[spec.Ref] = id
		}
		j.Steps = append(j.Steps, models.Step{ID: id})
	}

	for i, spec := range out.Steps {
		if strings.TrimSpace(spec.Title) == "" {
			return nil, generationErr(op, "step %d has no title", i)
		}
		pathType := spec.PathType
		if pathType == "" {
			pathType = models.PathTypeMain
		}
		status := models.StepStatusLocked
		switch pathType {
		case models.PathTypeMain:
		case models.PathTypeAlternative:
			status = models.StepStatusAlternative
		default:
			return nil, generationErr(op, "step %d has unsupported path type %q", i, spec.PathType)
		}

		var prereqs []string
		for _, ref := range spec.Prerequisites {
			id, ok := refs[ref]
			if !ok {
				return nil, generationErr(op, "step %d references unknown prerequisite %q", i, ref)
			}
			prereqs = append(prereqs, id)
		}
		var alts []string
		for _, ref := range spec.Alternatives {
			id, ok := refs[ref]
			if !ok {
				return nil, generationErr(op, "step %d references unknown alternative %q", i, ref)
			}
			alts = append(alts, id)
		}

		j.Steps[i] = models.Step{
			ID:            j.Steps[i].ID,
			JourneyID:     j.ID,
			Order:         i,
			Title:         spec.Title,
			Description:   spec.Description,
			Prerequisites: prereqs,
			Alternatives:  alts,
			Status:        status,
			PathType:      pathType,
			EstimatedDays: estimateOrDefault(spec.EstimatedDays),
			Extension:     extensionFor(spec.Tips),
			CreatedAt:     now,
		}
	}

	if err := validateGraph(j); err != nil {
		return nil, &Error{Kind: ErrGenerationFailure, Op: op, Err: err}
	}

	for _, s := range j.MainPath() {
		if prerequisitesMet(j, s) {
			s.Status = models.StepStatusAvailable
			break
		}
	}
	refresh(j, now)
	return j, nil
}

func generationErr(op string, format string, args ...any) error {
	return &Error{Kind: ErrGenerationFailure, Op: op, Err: fmt.Errorf(format, args...)}
}
