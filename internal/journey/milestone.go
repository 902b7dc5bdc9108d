package journey

// SignalKind identifies the celebration emitted after a mutation.
type SignalKind string

const (
	SignalNone          SignalKind = ""
	SignalStepCompleted SignalKind = "step_completed"
	SignalMilestone     SignalKind = "milestone"
)

// MilestoneThresholds are the progress fractions that trigger a milestone.
var MilestoneThresholds = []float64{0.25, 0.50, 0.75, 1.0}

// Signal is a side output of a mutation. Threshold is set for milestones only.
type Signal struct {
	Kind      SignalKind `json:"kind,omitempty"`
	Threshold float64    `json:"threshold,omitempty"`
}

const progressEpsilon = 1e-9

// DetectMilestone returns the highest threshold crossed going from prev to next
// progress. When none is crossed but a step was completed, it returns a plain
// step completion signal.
func DetectMilestone(prev, next float64, stepCompleted bool) Signal {
	crossed := 0.0
	for _, t := range MilestoneThresholds {
		if prev < t-progressEpsilon && next >= t-progressEpsilon {
			crossed = t
		}
	}
	if crossed > 0 {
		return Signal{Kind: SignalMilestone, Threshold: crossed}
	}
	if stepCompleted {
		return Signal{Kind: SignalStepCompleted}
	}
	return Signal{}
}
