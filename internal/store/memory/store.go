// Package memory is an in-memory journey store for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
)

// Store keeps journeys in process memory. It is NOT persistent.
type Store struct {
	mu       sync.RWMutex
	journeys map[string]*models.Journey
	byUserID map[string][]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		journeys: make(map[string]*models.Journey),
		byUserID: make(map[string][]string),
	}
}

// CreateJourney saves a new journey and makes it the user's current one.
func (s *Store) CreateJourney(ctx context.Context, j *models.Journey) error {
	if j == nil || j.ID == "" {
		return fmt.Errorf("journey id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.journeys[j.ID]; exists {
		return fmt.Errorf("journey %s already exists", j.ID)
	}
	s.journeys[j.ID] = j.Clone()
	s.byUserID[j.UserID] = append(s.byUserID[j.UserID], j.ID)
	return nil
}

// GetCurrentJourney returns the user's most recently created journey.
func (s *Store) GetCurrentJourney(ctx context.Context, userID string) (*models.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUserID[userID]
	if len(ids) == 0 {
		return nil, &journey.Error{Kind: journey.ErrNotFound, Op: "get_current_journey", ID: userID}
	}
	return s.journeys[ids[len(ids)-1]].Clone(), nil
}

// GetJourney returns one journey of the user.
func (s *Store) GetJourney(ctx context.Context, userID, journeyID string) (*models.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.journeys[journeyID]
	if !ok || j.UserID != userID {
		return nil, &journey.Error{Kind: journey.ErrNotFound, Op: "get_journey", ID: journeyID}
	}
	return j.Clone(), nil
}

// UpdateStepStatus stores the journey after a status change of stepID.
func (s *Store) UpdateStepStatus(ctx context.Context, j *models.Journey, stepID, note string) error {
	return s.replace("update_step_status", j, stepID)
}

// UpdateStepTitle stores the journey after a rename of stepID.
func (s *Store) UpdateStepTitle(ctx context.Context, j *models.Journey, stepID string) error {
	return s.replace("update_step_title", j, stepID)
}

// AppendNote stores the journey after a note was added to stepID.
func (s *Store) AppendNote(ctx context.Context, j *models.Journey, stepID string) error {
	return s.replace("append_note", j, stepID)
}

// ApplyAdjustment stores the journey after an adjustment batch.
func (s *Store) ApplyAdjustment(ctx context.Context, j *models.Journey, changes []string) error {
	return s.replace("apply_adjustment", j, "")
}

// DeleteJourney removes the journey. The user's previous journey, if any,
// becomes current again.
func (s *Store) DeleteJourney(ctx context.Context, userID, journeyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.journeys[journeyID]
	if !ok || j.UserID != userID {
		return &journey.Error{Kind: journey.ErrNotFound, Op: "delete_journey", ID: journeyID}
	}
	delete(s.journeys, journeyID)
	ids := s.byUserID[userID]
	if i := slices.Index(ids, journeyID); i >= 0 {
		s.byUserID[userID] = slices.Delete(ids, i, i+1)
	}
	if len(s.byUserID[userID]) == 0 {
		delete(s.byUserID, userID)
	}
	return nil
}

func (s *Store) replace(op string, j *models.Journey, stepID string) error {
	if j == nil {
		return fmt.Errorf("%s: journey is required", op)
	}
	if stepID != "" {
		if _, ok := j.Step(stepID); !ok {
			return &journey.Error{Kind: journey.ErrNotFound, Op: op, ID: stepID}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.journeys[j.ID]
	if !ok || stored.UserID != j.UserID {
		return &journey.Error{Kind: journey.ErrNotFound, Op: op, ID: j.ID}
	}
	s.journeys[j.ID] = j.Clone()
	return nil
}
