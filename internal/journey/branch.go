package journey

import (
	"slices"
	"time"

	"github.com/fitz/trailmap/internal/models"
)

// ChoosePath selects one branch at a decision step. Option roots are the decision
// step's alternatives or, when it lists none, the steps that directly depend on it.
// Every step reachable from the chosen root joins the main path; steps reachable
// only from the other roots become alternatives. The journey is left unchanged
// when the result would not be a valid graph.
func ChoosePath(j *models.Journey, decisionID, chosenID string, now time.Time) error {
	const op = "choose_path"

	work := j.Clone()
	if err := choosePath(work, decisionID, chosenID); err != nil {
		return err
	}
	if err := validateGraph(work); err != nil {
		return &Error{Kind: ErrValidation, Op: op, ID: decisionID, Err: err}
	}
	work.CurrentStepOverride = nil
	refresh(work, now)
	*j = *work
	return nil
}

func choosePath(j *models.Journey, decisionID, chosenID string) error {
	const op = "choose_path"

	decision, ok := j.Step(decisionID)
	if !ok {
		return notFoundErr(op, decisionID)
	}
	if _, ok := j.Step(chosenID); !ok {
		return notFoundErr(op, chosenID)
	}

	children := make(map[string][]string, len(j.Steps))
	for _, s := range j.Steps {
		for _, p := range s.Prerequisites {
			children[p] = append(children[p], s.ID)
		}
	}

	roots := decision.Alternatives
	if len(roots) == 0 {
		roots = children[decision.ID]
	}
	var options []string
	for _, id := range roots {
		if id == decision.ID || slices.Contains(options, id) {
			continue
		}
		if _, ok := j.Step(id); ok {
			options = append(options, id)
		}
	}
	if len(options) < 2 {
		return validationErr(op, "step %s does not offer multiple paths", decisionID)
	}
	if !slices.Contains(options, chosenID) {
		return validationErr(op, "step %s is not an option of decision %s", chosenID, decisionID)
	}

	branches := make(map[string]map[string]bool, len(options))
	affected := make(map[string]bool)
	for _, id := range options {
		branches[id] = reachable(children, id)
		for sid := range branches[id] {
			affected[sid] = true
		}
	}

	for sid := range affected {
		s, _ := j.Step(sid)
		if s.Status == models.StepStatusInProgress || s.Status == models.StepStatusCompleted {
			return transitionErr(op, sid, "a branch step has already been started")
		}
	}

	chosen := branches[chosenID]
	for i := range j.Steps {
		s := &j.Steps[i]
		if !affected[s.ID] {
			continue
		}
		if chosen[s.ID] {
			s.PathType = models.PathTypeMain
			if s.Status == models.StepStatusAlternative {
				s.Status = models.StepStatusLocked
			}
		} else {
			s.PathType = models.PathTypeAlternative
			s.Status = models.StepStatusAlternative
		}
	}

	if decision.Extension == nil {
		decision.Extension = &models.StepExtension{Version: models.CurrentExtensionVersion}
	}
	decision.Extension.SelectedPathStepID = chosenID

	if decision.Status == models.StepStatusCompleted {
		root, _ := j.Step(chosenID)
		if root.Status == models.StepStatusLocked && prerequisitesMet(j, root) {
			root.Status = models.StepStatusAvailable
		}
	}
	return nil
}

func reachable(children map[string][]string, start string) map[string]bool {
	visited := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		stack = append(stack, children[id]...)
	}
	return visited
}
