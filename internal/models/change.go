package models

import (
	"encoding/json"
	"fmt"
)

// ChangeKind is the discriminator of an adjustment change operation
type ChangeKind string

const (
	ChangeRename       ChangeKind = "rename"
	ChangeSkip         ChangeKind = "skip"
	ChangeInsertAfter  ChangeKind = "insert_after"
	ChangeUpdateStatus ChangeKind = "update_status"
)

// ChangeOp is one operation of an adjustment batch. Which fields are set depends on Kind:
//
//	rename:        StepID, NewTitle
//	skip:          StepID
//	insert_after:  AfterStepID, Step
//	update_status: StepID, NewStatus
type ChangeOp struct {
	Kind        ChangeKind `json:"type"`
	StepID      string     `json:"step_id,omitempty"`
	NewTitle    string     `json:"new_title,omitempty"`
	AfterStepID string     `json:"after_step_id,omitempty"`
	Step        *StepSpec  `json:"step,omitempty"`
	NewStatus   StepStatus `json:"new_status,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

type changeOpWire struct {
	Kind        string    `json:"type"`
	StepID      string    `json:"step_id"`
	NewTitle    string    `json:"new_title"`
	AfterStepID string    `json:"after_step_id"`
	Step        *StepSpec `json:"step"`
	NewStatus   string    `json:"new_status"`
	Reason      string    `json:"reason"`
}

// UnmarshalJSON parses the tagged record, rejecting unknown types and missing payload fields.
func (c *ChangeOp) UnmarshalJSON(b []byte) error {
	var w changeOpWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("malformed change operation: %w", err)
	}
	op := ChangeOp{
		Kind:        ChangeKind(w.Kind),
		StepID:      w.StepID,
		NewTitle:    w.NewTitle,
		AfterStepID: w.AfterStepID,
		Step:        w.Step,
		Reason:      w.Reason,
	}
	if w.NewStatus != "" {
		status, err := ParseStepStatus(w.NewStatus)
		if err != nil {
			return err
		}
		op.NewStatus = status
	}
	if err := op.Validate(); err != nil {
		return err
	}
	*c = op
	return nil
}

// Validate checks that the operation carries the payload its kind requires.
func (c ChangeOp) Validate() error {
	switch c.Kind {
	case ChangeRename:
		if c.StepID == "" || c.NewTitle == "" {
			return fmt.Errorf("rename requires step_id and new_title")
		}
	case ChangeSkip:
		if c.StepID == "" {
			return fmt.Errorf("skip requires step_id")
		}
	case ChangeInsertAfter:
		if c.AfterStepID == "" || c.Step == nil || c.Step.Title == "" {
			return fmt.Errorf("insert_after requires after_step_id and a step with a title")
		}
	case ChangeUpdateStatus:
		if c.StepID == "" || c.NewStatus == "" {
			return fmt.Errorf("update_status requires step_id and new_status")
		}
	case "":
		return fmt.Errorf("change operation is missing its type")
	default:
		return fmt.Errorf("unknown change operation type %q", c.Kind)
	}
	return nil
}

// Adjustment is a batch of change operations proposed for one journey.
type Adjustment struct {
	JourneyID           string     `json:"journey_id"`
	Changes             []ChangeOp `json:"changes"`
	NewCurrentStepIndex *int       `json:"new_current_step_index,omitempty"`
	Message             string     `json:"message,omitempty"`
}
