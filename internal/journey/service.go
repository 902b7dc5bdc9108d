package journey

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitz/trailmap/internal/models"
)

// Service creates journeys and hands out one Coordinator per open journey.
type Service struct {
	store     Store
	generator Generator
	opts      CoordinatorOptions
	logger    *slog.Logger

	mu   sync.Mutex
	open map[string]*Coordinator
}

// NewService wires the engine to its collaborators. opts are shared by every
// coordinator the service opens.
func NewService(store Store, generator Generator, opts CoordinatorOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = DefaultRemoteTimeout
	}
	return &Service{
		store:     store,
		generator: generator,
		opts:      opts,
		logger:    opts.Logger,
		open:      make(map[string]*Coordinator),
	}
}

// Generate drafts a journey with the generation collaborator and stores it. The
// journey is only opened once the store has accepted it.
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (*Coordinator, error) {
	const op = "generate"

	if err := ValidateGenerationRequest(req); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, &Error{Kind: ErrGenerationFailure, Op: op, Err: errors.New("no generation collaborator configured")}
	}

	out, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, &Error{Kind: ErrGenerationFailure, Op: op, Err: err}
	}
	j, err := BuildJourney(req, out, s.opts.Now(), s.opts.NewID)
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
	defer cancel()
	if err := s.store.CreateJourney(rctx, j); err != nil {
		return nil, remoteErr(op, j.ID, err)
	}

	s.logger.Info("journey generated", "journey_id", j.ID, "user_id", j.UserID, "steps", len(j.Steps))
	return s.track(j), nil
}

// Open returns the coordinator of the user's current journey, loading it from the
// store when it is not open yet.
func (s *Service) Open(ctx context.Context, userID string) (*Coordinator, error) {
	return s.load(ctx, "open", func(ctx context.Context) (*models.Journey, error) {
		return s.store.GetCurrentJourney(ctx, userID)
	})
}

// OpenJourney is Open for a specific journey id.
func (s *Service) OpenJourney(ctx context.Context, userID, journeyID string) (*Coordinator, error) {
	s.mu.Lock()
	if c, ok := s.open[journeyID]; ok {
		s.mu.Unlock()
		if !c.ownedBy(userID) {
			return nil, notFoundErr("open_journey", journeyID)
		}
		return c, nil
	}
	s.mu.Unlock()
	return s.load(ctx, "open_journey", func(ctx context.Context) (*models.Journey, error) {
		return s.store.GetJourney(ctx, userID, journeyID)
	})
}

// Delete removes a journey and forgets its coordinator.
func (s *Service) Delete(ctx context.Context, userID, journeyID string) error {
	c, err := s.OpenJourney(ctx, userID, journeyID)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.open, journeyID)
	s.mu.Unlock()
	return nil
}

// Wait blocks until every open coordinator has settled its remote writes.
func (s *Service) Wait() {
	s.mu.Lock()
	open := make([]*Coordinator, 0, len(s.open))
	for _, c := range s.open {
		open = append(open, c)
	}
	s.mu.Unlock()
	for _, c := range open {
		c.Wait()
	}
}

func (s *Service) load(ctx context.Context, op string, fetch func(context.Context) (*models.Journey, error)) (*Coordinator, error) {
	rctx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
	defer cancel()
	j, err := fetch(rctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, remoteErr(op, "", err)
	}
	refresh(j, j.UpdatedAt)
	return s.track(j), nil
}

func (s *Service) track(j *models.Journey) *Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.open[j.ID]; ok {
		return c
	}
	c := NewCoordinator(s.store, j, s.opts)
	s.open[j.ID] = c
	return c
}
