package journey

import "testing"

func TestDetectMilestone(t *testing.T) {
	tests := []struct {
		name      string
		prev      float64
		next      float64
		completed bool
		expected  Signal
	}{
		{"crosses quarter", 0.20, 0.30, true, Signal{Kind: SignalMilestone, Threshold: 0.25}},
		{"highest crossed wins", 0.10, 0.60, true, Signal{Kind: SignalMilestone, Threshold: 0.50}},
		{"jump to half", 0.40, 0.55, true, Signal{Kind: SignalMilestone, Threshold: 0.50}},
		{"lands on threshold", 0.0, 0.25, true, Signal{Kind: SignalMilestone, Threshold: 0.25}},
		{"finishing from two thirds", 2.0 / 3.0, 1.0, true, Signal{Kind: SignalMilestone, Threshold: 1.0}},
		{"already past threshold", 0.25, 0.40, true, Signal{Kind: SignalStepCompleted}},
		{"no completion no signal", 0.30, 0.30, false, Signal{}},
		{"regression fires nothing", 0.60, 0.40, false, Signal{}},
		{"adjustment crossing still celebrates", 0.70, 0.80, false, Signal{Kind: SignalMilestone, Threshold: 0.75}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMilestone(tc.prev, tc.next, tc.completed); got != tc.expected {
				t.Errorf("DetectMilestone(%v, %v, %v) = %+v, expected %+v", tc.prev, tc.next, tc.completed, got, tc.expected)
			}
		})
	}
}
