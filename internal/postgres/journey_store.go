package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key.
const uniqueViolation = "23505"

// JourneyStore keeps each journey as one JSONB document and records every
// write in journey_events.
type JourneyStore struct {
	client *Client
}

var _ journey.Store = (*JourneyStore)(nil)

// NewJourneyStore creates a new journey store
func NewJourneyStore(client *Client) *JourneyStore {
	return &JourneyStore{client: client}
}

// Event is one recorded write.
type Event struct {
	JourneyID  string
	Op         string
	StepID     string
	Details    []string
	RecordedAt time.Time
}

// CreateJourney saves a new journey.
func (s *JourneyStore) CreateJourney(ctx context.Context, j *models.Journey) error {
	if j == nil || j.ID == "" {
		return fmt.Errorf("journey id is required")
	}
	doc, err := encodeJourney(j)
	if err != nil {
		return err
	}

	tx, err := s.client.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journeys (id, user_id, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, j.ID, j.UserID, doc, j.CreatedAt, j.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("journey %s already exists", j.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert journey: %w", err)
	}
	if err := recordEvent(ctx, tx, j.ID, "create_journey", "", nil); err != nil {
		return err
	}
	return tx.Commit()
}

// GetCurrentJourney returns the user's most recently created journey.
func (s *JourneyStore) GetCurrentJourney(ctx context.Context, userID string) (*models.Journey, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT document FROM journeys
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`, userID)
	return scanJourney(row, "get_current_journey", userID)
}

// GetJourney returns one journey of the user.
func (s *JourneyStore) GetJourney(ctx context.Context, userID, journeyID string) (*models.Journey, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT document FROM journeys
		WHERE id = $1 AND user_id = $2
	`, journeyID, userID)
	return scanJourney(row, "get_journey", journeyID)
}

func scanJourney(row *sql.Row, op, id string) (*models.Journey, error) {
	var doc []byte
	err := row.Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, &journey.Error{Kind: journey.ErrNotFound, Op: op, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journey: %w", err)
	}
	return decodeJourney(doc)
}

// UpdateStepStatus stores the journey after a status change of stepID.
func (s *JourneyStore) UpdateStepStatus(ctx context.Context, j *models.Journey, stepID, note string) error {
	var details []string
	if step, ok := j.Step(stepID); ok {
		details = append(details, string(step.Status))
	}
	if note != "" {
		details = append(details, note)
	}
	return s.replace(ctx, "update_step_status", j, stepID, details)
}

// UpdateStepTitle stores the journey after a rename of stepID.
func (s *JourneyStore) UpdateStepTitle(ctx context.Context, j *models.Journey, stepID string) error {
	var details []string
	if step, ok := j.Step(stepID); ok {
		details = append(details, step.DisplayTitle())
	}
	return s.replace(ctx, "update_step_title", j, stepID, details)
}

// AppendNote stores the journey after a note was added to stepID.
func (s *JourneyStore) AppendNote(ctx context.Context, j *models.Journey, stepID string) error {
	var details []string
	if step, ok := j.Step(stepID); ok && len(step.Notes) > 0 {
		details = append(details, step.Notes[len(step.Notes)-1])
	}
	return s.replace(ctx, "append_note", j, stepID, details)
}

// ApplyAdjustment stores the journey after an adjustment batch.
func (s *JourneyStore) ApplyAdjustment(ctx context.Context, j *models.Journey, changes []string) error {
	return s.replace(ctx, "apply_adjustment", j, "", changes)
}

func (s *JourneyStore) replace(ctx context.Context, op string, j *models.Journey, stepID string, details []string) error {
	if j == nil {
		return fmt.Errorf("%s: journey is required", op)
	}
	if stepID != "" {
		if _, ok := j.Step(stepID); !ok {
			return &journey.Error{Kind: journey.ErrNotFound, Op: op, ID: stepID}
		}
	}
	doc, err := encodeJourney(j)
	if err != nil {
		return err
	}

	tx, err := s.client.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE journeys SET document = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
	`, doc, j.UpdatedAt, j.ID, j.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return &journey.Error{Kind: journey.ErrNotFound, Op: op, ID: j.ID}
	}
	if err := recordEvent(ctx, tx, j.ID, op, stepID, details); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteJourney removes the journey and its events.
func (s *JourneyStore) DeleteJourney(ctx context.Context, userID, journeyID string) error {
	res, err := s.client.DB().ExecContext(ctx,
		`DELETE FROM journeys WHERE id = $1 AND user_id = $2`, journeyID, userID)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if n == 0 {
		return &journey.Error{Kind: journey.ErrNotFound, Op: "delete_journey", ID: journeyID}
	}
	return nil
}

// Events lists the recorded writes of a journey, oldest first.
func (s *JourneyStore) Events(ctx context.Context, journeyID string) ([]Event, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT journey_id, op, step_id, details, recorded_at
		FROM journey_events
		WHERE journey_id = $1
		ORDER BY id ASC
	`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.JourneyID, &e.Op, &e.StepID, pq.Array(&e.Details), &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func recordEvent(ctx context.Context, tx *sql.Tx, journeyID, op, stepID string, details []string) error {
	if details == nil {
		details = []string{}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO journey_events (journey_id, op, step_id, details)
		VALUES ($1, $2, $3, $4)
	`, journeyID, op, stepID, pq.Array(details))
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", op, err)
	}
	return nil
}

func encodeJourney(j *models.Journey) ([]byte, error) {
	doc, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to encode journey %s: %w", j.ID, err)
	}
	return doc, nil
}

func decodeJourney(doc []byte) (*models.Journey, error) {
	var j models.Journey
	if err := json.Unmarshal(doc, &j); err != nil {
		return nil, fmt.Errorf("failed to decode journey: %w", err)
	}
	return &j, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
