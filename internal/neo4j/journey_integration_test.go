//go:build integration
// +build integration

package neo4j

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
	"github.com/google/uuid"
)

// Run with: go test -tags=integration -v ./internal/neo4j
func getTestClient(t *testing.T) (*Client, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)

	client, err := NewClient(ctx, ConfigFromEnv())
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect to Neo4j: %v", err)
	}
	return client, ctx, cancel
}

func uniqueJourney() *models.Journey {
	j := sampleJourney()
	j.ID = "it-" + uuid.NewString()
	j.UserID = "it-user-" + uuid.NewString()
	for i := range j.Steps {
		old := j.Steps[i].ID
		j.Steps[i].ID = j.ID + "-" + old
		j.Steps[i].JourneyID = j.ID
	}
	j.Steps[1].Prerequisites = []string{j.Steps[0].ID}
	return j
}

func TestJourneyRepository_Lifecycle(t *testing.T) {
	client, ctx, cancel := getTestClient(t)
	defer cancel()
	defer client.Close(ctx)

	repo := NewJourneyRepository(client)
	j := uniqueJourney()
	defer repo.DeleteJourney(ctx, j.UserID, j.ID)

	if err := repo.CreateJourney(ctx, j); err != nil {
		t.Fatalf("CreateJourney: %v", err)
	}

	got, err := repo.GetJourney(ctx, j.UserID, j.ID)
	if err != nil {
		t.Fatalf("GetJourney: %v", err)
	}
	if !reflect.DeepEqual(got, j) {
		t.Errorf("stored journey differs:\ngot  %+v\nwant %+v", got, j)
	}

	cur, err := repo.GetCurrentJourney(ctx, j.UserID)
	if err != nil || cur.ID != j.ID {
		t.Fatalf("GetCurrentJourney: %v, %v", cur, err)
	}

	// Replace the graph: drop the second step, add a new one depending on the first.
	j.Steps = append(j.Steps[:1], models.Step{
		ID: j.ID + "-s3", JourneyID: j.ID, Order: 1, Title: "Crew for a friend",
		Status: models.StepStatusAvailable, PathType: models.PathTypeMain, EstimatedDays: 7,
		Prerequisites: []string{j.Steps[0].ID}, CreatedAt: j.CreatedAt,
	})
	j.CurrentStepOverride = nil
	for i := 0; i < 2; i++ {
		if err := repo.ApplyAdjustment(ctx, j, []string{"Removed RYA level 1", "Added Crew for a friend"}); err != nil {
			t.Fatalf("ApplyAdjustment #%d: %v", i, err)
		}
	}
	got, err = repo.GetJourney(ctx, j.UserID, j.ID)
	if err != nil {
		t.Fatalf("GetJourney after adjustment: %v", err)
	}
	if !reflect.DeepEqual(got, j) {
		t.Errorf("adjusted journey differs:\ngot  %+v\nwant %+v", got, j)
	}

	if err := repo.DeleteJourney(ctx, j.UserID, j.ID); err != nil {
		t.Fatalf("DeleteJourney: %v", err)
	}
	if _, err := repo.GetJourney(ctx, j.UserID, j.ID); !errors.Is(err, journey.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteJourney(ctx, j.UserID, j.ID); !errors.Is(err, journey.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestJourneyRepository_OtherUser(t *testing.T) {
	client, ctx, cancel := getTestClient(t)
	defer cancel()
	defer client.Close(ctx)

	repo := NewJourneyRepository(client)
	j := uniqueJourney()
	if err := repo.CreateJourney(ctx, j); err != nil {
		t.Fatalf("CreateJourney: %v", err)
	}
	defer repo.DeleteJourney(ctx, j.UserID, j.ID)

	stranger := j.Clone()
	stranger.UserID = "someone-else"
	if err := repo.UpdateStepStatus(ctx, stranger, j.Steps[0].ID, ""); !errors.Is(err, journey.ErrNotFound) {
		t.Errorf("expected ErrNotFound writing another user's journey, got %v", err)
	}
	if _, err := repo.GetJourney(ctx, "someone-else", j.ID); !errors.Is(err, journey.ErrNotFound) {
		t.Errorf("expected ErrNotFound reading another user's journey, got %v", err)
	}
}
