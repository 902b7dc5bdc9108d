package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// JourneyRepository stores journeys as a graph:
//
//	(:Journey)-[:HAS_STEP {position}]->(:Step)-[:DEPENDS_ON {position}]->(:Step)
//
// Every write replaces the whole journey inside one transaction, so repeating
// a write is harmless.
type JourneyRepository struct {
	client *Client
}

var _ journey.Store = (*JourneyRepository)(nil)

// NewJourneyRepository creates a new journey repository
func NewJourneyRepository(client *Client) *JourneyRepository {
	return &JourneyRepository{client: client}
}

// CreateJourney saves a new journey.
func (r *JourneyRepository) CreateJourney(ctx context.Context, j *models.Journey) error {
	if j == nil || j.ID == "" {
		return fmt.Errorf("journey id is required")
	}

	session := r.client.Session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
CREATE (j:Journey {id: $id})
SET j += $props
`, map[string]any{"id": j.ID, "props": journeyProps(j)})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, writeSteps(ctx, tx, j)
	})
	if err != nil {
		return fmt.Errorf("failed to create journey: %w", err)
	}
	return nil
}

// GetCurrentJourney returns the user's most recently created journey.
func (r *JourneyRepository) GetCurrentJourney(ctx context.Context, userID string) (*models.Journey, error) {
	session := r.client.Session(ctx)
	defer session.Close(ctx)

	cypher := `
MATCH (j:Journey {user_id: $user_id})
RETURN j.id AS id
ORDER BY j.created_at DESC
LIMIT 1
`
	result, err := session.Run(ctx, cypher, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find current journey: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("result iteration error: %w", err)
		}
		return nil, &journey.Error{Kind: journey.ErrNotFound, Op: "get_current_journey", ID: userID}
	}
	id, _ := result.Record().Get("id")
	journeyID, _ := id.(string)

	return r.load(ctx, session, userID, journeyID)
}

// GetJourney returns one journey of the user.
func (r *JourneyRepository) GetJourney(ctx context.Context, userID, journeyID string) (*models.Journey, error) {
	session := r.client.Session(ctx)
	defer session.Close(ctx)

	return r.load(ctx, session, userID, journeyID)
}

func (r *JourneyRepository) load(ctx context.Context, session neo4j.SessionWithContext, userID, journeyID string) (*models.Journey, error) {
	result, err := session.Run(ctx, `MATCH (j:Journey {id: $id, user_id: $user_id}) RETURN j`,
		map[string]any{"id": journeyID, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get journey: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("result iteration error: %w", err)
		}
		return nil, &journey.Error{Kind: journey.ErrNotFound, Op: "get_journey", ID: journeyID}
	}
	node, _ := result.Record().Get("j")
	j := nodeToJourney(node.(neo4j.Node))

	cypher := `
MATCH (:Journey {id: $id})-[h:HAS_STEP]->(s:Step)
OPTIONAL MATCH (s)-[d:DEPENDS_ON]->(p:Step)
WITH h, s, d, p
ORDER BY d.position
RETURN s, h.position AS position, collect(p.id) AS prerequisites
ORDER BY position
`
	result, err = session.Run(ctx, cypher, map[string]any{"id": journeyID})
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		node, _ := record.Get("s")
		prereqs, _ := record.Get("prerequisites")

		step, err := nodeToStep(node.(neo4j.Node))
		if err != nil {
			return nil, fmt.Errorf("journey %s: %w", journeyID, err)
		}
		step.Prerequisites = getStrings(prereqs)
		j.Steps = append(j.Steps, step)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("result iteration error: %w", err)
	}
	return &j, nil
}

// UpdateStepStatus stores the journey after a status change of stepID.
func (r *JourneyRepository) UpdateStepStatus(ctx context.Context, j *models.Journey, stepID, note string) error {
	return r.replace(ctx, "update_step_status", j, stepID, nil)
}

// UpdateStepTitle stores the journey after a rename of stepID.
func (r *JourneyRepository) UpdateStepTitle(ctx context.Context, j *models.Journey, stepID string) error {
	return r.replace(ctx, "update_step_title", j, stepID, nil)
}

// AppendNote stores the journey after a note was added to stepID.
func (r *JourneyRepository) AppendNote(ctx context.Context, j *models.Journey, stepID string) error {
	return r.replace(ctx, "append_note", j, stepID, nil)
}

// ApplyAdjustment stores the journey after an adjustment batch and keeps the
// batch summary on the journey node.
func (r *JourneyRepository) ApplyAdjustment(ctx context.Context, j *models.Journey, changes []string) error {
	if changes == nil {
		changes = []string{}
	}
	return r.replace(ctx, "apply_adjustment", j, "", changes)
}

func (r *JourneyRepository) replace(ctx context.Context, op string, j *models.Journey, stepID string, changes []string) error {
	if j == nil {
		return fmt.Errorf("%s: journey is required", op)
	}
	if stepID != "" {
		if _, ok := j.Step(stepID); !ok {
			return &journey.Error{Kind: journey.ErrNotFound, Op: op, ID: stepID}
		}
	}

	session := r.client.Session(ctx)
	defer session.Close(ctx)

	props := journeyProps(j)
	if changes != nil {
		props["last_adjustment"] = changes
	}

	found, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (j:Journey {id: $id, user_id: $user_id})
SET j += $props
RETURN j.id AS id
`, map[string]any{"id": j.ID, "user_id": j.UserID, "props": props})
		if err != nil {
			return false, err
		}
		if !res.Next(ctx) {
			return false, res.Err()
		}
		return true, writeSteps(ctx, tx, j)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ok, _ := found.(bool); !ok {
		return &journey.Error{Kind: journey.ErrNotFound, Op: op, ID: j.ID}
	}
	return nil
}

// writeSteps makes the journey's steps and edges match j exactly.
func writeSteps(ctx context.Context, tx neo4j.ManagedTransaction, j *models.Journey) error {
	rows, deps, err := stepRows(j)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(j.Steps))
	for _, s := range j.Steps {
		ids = append(ids, s.ID)
	}

	queries := []struct {
		cypher string
		params map[string]any
	}{
		{`
MATCH (:Journey {id: $id})-[:HAS_STEP]->(s:Step)
WHERE NOT s.id IN $ids
DETACH DELETE s
`, map[string]any{"id": j.ID, "ids": ids}},
		{`
MATCH (j:Journey {id: $id})
UNWIND $rows AS row
MERGE (s:Step {id: row.id})
SET s = row.props
MERGE (j)-[h:HAS_STEP]->(s)
SET h.position = row.position
`, map[string]any{"id": j.ID, "rows": rows}},
		{`
MATCH (:Journey {id: $id})-[:HAS_STEP]->(:Step)-[d:DEPENDS_ON]->()
DELETE d
`, map[string]any{"id": j.ID}},
		{`
UNWIND $deps AS dep
MATCH (a:Step {id: dep.from})
MATCH (b:Step {id: dep.to})
CREATE (a)-[:DEPENDS_ON {position: dep.position}]->(b)
`, map[string]any{"deps": deps}},
	}

	for _, q := range queries {
		res, err := tx.Run(ctx, q.cypher, q.params)
		if err != nil {
			return err
		}
		if _, err := res.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DeleteJourney removes the journey and its steps.
func (r *JourneyRepository) DeleteJourney(ctx context.Context, userID, journeyID string) error {
	session := r.client.Session(ctx)
	defer session.Close(ctx)

	cypher := `
MATCH (j:Journey {id: $id, user_id: $user_id})
OPTIONAL MATCH (j)-[:HAS_STEP]->(s:Step)
DETACH DELETE s, j
RETURN count(DISTINCT j) AS deleted
`
	result, err := session.Run(ctx, cypher, map[string]any{"id": journeyID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if !result.Next(ctx) {
		return fmt.Errorf("delete failed: %w", result.Err())
	}
	deleted, _ := result.Record().Get("deleted")
	if n, _ := deleted.(int64); n == 0 {
		return &journey.Error{Kind: journey.ErrNotFound, Op: "delete_journey", ID: journeyID}
	}
	return nil
}

func journeyProps(j *models.Journey) map[string]any {
	props := map[string]any{
		"user_id":            j.UserID,
		"goal_id":            j.GoalID,
		"goal_content":       j.GoalContent,
		"goal_reason":        j.GoalReason,
		"overall_progress":   j.OverallProgress,
		"created_at":         j.CreatedAt,
		"updated_at":         j.UpdatedAt,
		"journey_started_at": j.JourneyStartedAt,
		"ai_generated":       j.AIGenerated,
		"ai_notes":           j.AINotes,
		// A null property is removed by SET +=.
		"current_step_override": nil,
	}
	if j.CurrentStepOverride != nil {
		props["current_step_override"] = int64(*j.CurrentStepOverride)
	}
	return props
}

// stepRows flattens the steps into UNWIND rows and DEPENDS_ON edges.
func stepRows(j *models.Journey) ([]map[string]any, []map[string]any, error) {
	rows := make([]map[string]any, 0, len(j.Steps))
	deps := []map[string]any{}
	for i, s := range j.Steps {
		props := map[string]any{
			"id":             s.ID,
			"journey_id":     j.ID,
			"order":          int64(s.Order),
			"title":          s.Title,
			"custom_title":   s.CustomTitle,
			"description":    s.Description,
			"alternatives":   nonNil(s.Alternatives),
			"status":         string(s.Status),
			"path_type":      string(s.PathType),
			"notes":          nonNil(s.Notes),
			"estimated_days": int64(s.EstimatedDays),
			"created_at":     s.CreatedAt,
		}
		if s.StartedAt != nil {
			props["started_at"] = *s.StartedAt
		}
		if s.CompletedAt != nil {
			props["completed_at"] = *s.CompletedAt
		}
		if s.ActualDaysSpent != nil {
			props["actual_days_spent"] = int64(*s.ActualDaysSpent)
		}
		if s.Extension != nil {
			b, err := json.Marshal(s.Extension)
			if err != nil {
				return nil, nil, fmt.Errorf("step %s extension: %w", s.ID, err)
			}
			props["extension"] = string(b)
		}
		rows = append(rows, map[string]any{"id": s.ID, "position": int64(i), "props": props})

		for p, prereq := range s.Prerequisites {
			deps = append(deps, map[string]any{"from": s.ID, "to": prereq, "position": int64(p)})
		}
	}
	return rows, deps, nil
}

// nodeToJourney converts a Neo4j node to a Journey without its steps
func nodeToJourney(node neo4j.Node) models.Journey {
	props := node.Props

	j := models.Journey{
		ID:               getString(props, "id"),
		UserID:           getString(props, "user_id"),
		GoalID:           getString(props, "goal_id"),
		GoalContent:      getString(props, "goal_content"),
		GoalReason:       getString(props, "goal_reason"),
		AINotes:          getString(props, "ai_notes"),
		CreatedAt:        getTime(props, "created_at"),
		UpdatedAt:        getTime(props, "updated_at"),
		JourneyStartedAt: getTime(props, "journey_started_at"),
	}
	if v, ok := props["overall_progress"].(float64); ok {
		j.OverallProgress = v
	}
	if v, ok := props["ai_generated"].(bool); ok {
		j.AIGenerated = v
	}
	if v, ok := props["current_step_override"].(int64); ok {
		idx := int(v)
		j.CurrentStepOverride = &idx
	}
	return j
}

// nodeToStep converts a Neo4j node to a Step. Prerequisites live on edges and
// are filled in by the caller.
func nodeToStep(node neo4j.Node) (models.Step, error) {
	props := node.Props

	status, err := models.ParseStepStatus(getString(props, "status"))
	if err != nil {
		return models.Step{}, fmt.Errorf("step %s: %w", getString(props, "id"), err)
	}

	s := models.Step{
		ID:            getString(props, "id"),
		JourneyID:     getString(props, "journey_id"),
		Order:         int(getInt(props, "order")),
		Title:         getString(props, "title"),
		CustomTitle:   getString(props, "custom_title"),
		Description:   getString(props, "description"),
		Alternatives:  getStrings(props["alternatives"]),
		Status:        status,
		PathType:      models.PathType(getString(props, "path_type")),
		Notes:         getStrings(props["notes"]),
		EstimatedDays: int(getInt(props, "estimated_days")),
		CreatedAt:     getTime(props, "created_at"),
	}
	if t, ok := props["started_at"].(time.Time); ok {
		t = t.UTC()
		s.StartedAt = &t
	}
	if t, ok := props["completed_at"].(time.Time); ok {
		t = t.UTC()
		s.CompletedAt = &t
	}
	if v, ok := props["actual_days_spent"].(int64); ok {
		d := int(v)
		s.ActualDaysSpent = &d
	}
	if raw := getString(props, "extension"); raw != "" {
		var ext models.StepExtension
		if err := json.Unmarshal([]byte(raw), &ext); err != nil {
			return models.Step{}, fmt.Errorf("step %s: %w", s.ID, err)
		}
		s.Extension = &ext
	}
	return s, nil
}

func getString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func getInt(props map[string]any, key string) int64 {
	if v, ok := props[key].(int64); ok {
		return v
	}
	return 0
}

func getTime(props map[string]any, key string) time.Time {
	if v, ok := props[key].(time.Time); ok {
		return v.UTC()
	}
	return time.Time{}
}

// getStrings reads a list property. Empty lists come back as nil.
func getStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
