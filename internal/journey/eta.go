package journey

import (
	"fmt"
	"math"
	"time"

	"github.com/fitz/trailmap/internal/models"
)

// DefaultStepDays is the per-step average used when a journey has no steps left to measure.
const DefaultStepDays = 14.0

// Project computes the ETA of j as of now. It reads nothing but its arguments.
func Project(j *models.Journey, now time.Time) models.ETA {
	completed := j.CompletedSteps()
	remaining := j.RemainingSteps()

	eta := models.ETA{
		StepsCompleted: len(completed),
		StepsRemaining: len(remaining),
		VelocityScore:  1.0,
	}

	var estCompleted, spentCompleted, estRemaining int
	for _, s := range completed {
		estCompleted += s.EstimatedDays
		spentCompleted += s.DaysSpent()
	}
	for _, s := range remaining {
		estRemaining += s.EstimatedDays
	}
	eta.TotalEstimatedDays = estCompleted + estRemaining

	if len(completed) == 0 {
		eta.AverageDaysPerStep = DefaultStepDays
		if len(remaining) > 0 {
			eta.AverageDaysPerStep = float64(estRemaining) / float64(len(remaining))
		}
		eta.RemainingDays = estRemaining
	} else {
		eta.AverageDaysPerStep = float64(spentCompleted) / float64(len(completed))
		if spentCompleted > 0 {
			eta.VelocityScore = float64(estCompleted) / float64(spentCompleted)
		}
		eta.RemainingDays = int(math.Round(float64(len(remaining)) * eta.AverageDaysPerStep / eta.VelocityScore))
	}

	eta.EstimatedCompletionDate = now.AddDate(0, 0, eta.RemainingDays)
	if !j.JourneyStartedAt.IsZero() && now.After(j.JourneyStartedAt) {
		eta.DaysElapsed = int(now.Sub(j.JourneyStartedAt) / (24 * time.Hour))
	}
	eta.Pace = paceFor(eta.VelocityScore)
	eta.DisplayText = fmt.Sprintf("%s, %s", eta.Pace, remainingText(eta.RemainingDays))
	return eta
}

func paceFor(velocity float64) models.Pace {
	switch {
	case velocity >= 1.3:
		return models.PaceAhead
	case velocity >= 0.9:
		return models.PaceOnTrack
	case velocity >= 0.7:
		return models.PaceBitBehind
	default:
		return models.PacePickUp
	}
}

func remainingText(days int) string {
	switch {
	case days <= 0:
		return "almost there"
	case days <= 7:
		return plural(days, "day") + " to go"
	case days <= 30:
		return "about " + plural(roundDiv(days, 7), "week") + " to go"
	case days <= 365:
		return "about " + plural(roundDiv(days, 30), "month") + " to go"
	default:
		return "about " + plural(roundDiv(days, 365), "year") + " to go"
	}
}

func roundDiv(n, d int) int {
	return max(1, int(math.Round(float64(n)/float64(d))))
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
