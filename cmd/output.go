package cmd

import (
	"fmt"
	"strings"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
)

var statusMarks = map[models.StepStatus]string{
	models.StepStatusLocked:      "·",
	models.StepStatusAvailable:   "○",
	models.StepStatusInProgress:  "◐",
	models.StepStatusCompleted:   "●",
	models.StepStatusSkipped:     "–",
	models.StepStatusAlternative: "◇",
}

func printJourney(j *models.Journey, eta models.ETA) {
	fmt.Printf("Journey %s\n", j.ID)
	fmt.Printf("  Goal: %s\n", j.GoalContent)
	fmt.Printf("  Progress: %s\n", progressBar(j.OverallProgress))
	fmt.Printf("  ETA: %s (%s)\n", eta.EstimatedCompletionDate.Format("2006-01-02"), eta.DisplayText)
	if j.AINotes != "" {
		fmt.Printf("  Notes: %s\n", j.AINotes)
	}
	fmt.Println()

	current := j.CurrentStep()
	for _, s := range j.Steps {
		printStep(s, current != nil && current.ID == s.ID)
	}
}

func printStep(s models.Step, current bool) {
	pointer := " "
	if current {
		pointer = "▶"
	}
	indent := ""
	if !s.OnMainPath() {
		indent = "  ↳ "
	}
	fmt.Printf("%s %s %s%s  [%s, %dd]\n", pointer, statusMarks[s.Status], indent, s.DisplayTitle(), s.Status, s.EstimatedDays)
	fmt.Printf("      id: %s\n", s.ID)
	for _, n := range s.Notes {
		fmt.Printf("      note: %s\n", n)
	}
}

func printETA(eta models.ETA) {
	fmt.Printf("Estimated completion: %s\n", eta.EstimatedCompletionDate.Format("2006-01-02"))
	fmt.Printf("  %s\n", eta.DisplayText)
	fmt.Printf("  Steps: %d completed, %d remaining\n", eta.StepsCompleted, eta.StepsRemaining)
	fmt.Printf("  Days elapsed: %d, remaining: %d\n", eta.DaysElapsed, eta.RemainingDays)
	fmt.Printf("  Velocity: %.2f (%s)\n", eta.VelocityScore, eta.Pace)
}

// printResult reports a mutation once the store has confirmed it.
func printResult(what string, res *journey.Result) {
	fmt.Printf("✓ %s\n", what)
	for _, c := range res.Changes {
		fmt.Printf("  - %s\n", c)
	}
	if res.Message != "" {
		fmt.Printf("\n%s\n", res.Message)
	}
	switch res.Signal.Kind {
	case journey.SignalMilestone:
		fmt.Printf("\n🎉 Milestone reached: %.0f%% of the journey done\n", res.Signal.Threshold*100)
	case journey.SignalStepCompleted:
		fmt.Printf("\n🎉 Step completed\n")
	}
	fmt.Printf("  Progress: %s\n", progressBar(res.Journey.OverallProgress))
	fmt.Printf("  ETA: %s\n", res.ETA.DisplayText)
}

func progressBar(p float64) string {
	const width = 20
	filled := int(p * width)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("█", filled), strings.Repeat("░", width-filled), p*100)
}
