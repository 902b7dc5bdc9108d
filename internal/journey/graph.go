package journey

import (
	"fmt"
	"slices"
	"time"

	"github.com/fitz/trailmap/internal/models"
)

// validateGraph checks that every referenced id exists in the journey and that the
// prerequisite relation has no cycle. Alternative steps are included because
// choosing a branch moves them onto the main path.
func validateGraph(j *models.Journey) error {
	byID := make(map[string]*models.Step, len(j.Steps))
	for i := range j.Steps {
		s := &j.Steps[i]
		if _, dup := byID[s.ID]; dup {
			return fmt.Errorf("duplicate step id %s", s.ID)
		}
		byID[s.ID] = s
	}
	for _, s := range j.Steps {
		for _, p := range s.Prerequisites {
			if p == s.ID {
				return fmt.Errorf("step %s lists itself as a prerequisite", s.ID)
			}
			if _, ok := byID[p]; !ok {
				return fmt.Errorf("step %s references unknown prerequisite %s", s.ID, p)
			}
		}
		for _, a := range s.Alternatives {
			if _, ok := byID[a]; !ok {
				return fmt.Errorf("step %s references unknown alternative %s", s.ID, a)
			}
		}
	}
	return detectCycles(j, byID)
}

// detectCycles runs a depth-first search over every prerequisite edge.
// permanent holds nodes known to be cycle free, temporary the current recursion stack.
func detectCycles(j *models.Journey, byID map[string]*models.Step) error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(s *models.Step) error
	visit = func(s *models.Step) error {
		if permanent[s.ID] {
			return nil
		}
		if temporary[s.ID] {
			return fmt.Errorf("prerequisite cycle detected involving step %s", s.ID)
		}
		temporary[s.ID] = true
		for _, pid := range s.Prerequisites {
			p := byID[pid]
			if p == nil {
				continue
			}
			if err := visit(p); err != nil {
				return err
			}
		}
		delete(temporary, s.ID)
		permanent[s.ID] = true
		return nil
	}

	for i := range j.Steps {
		if err := visit(&j.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

// prerequisitesMet is the AND-gate over prerequisites. Alternatives never gate.
func prerequisitesMet(j *models.Journey, s *models.Step) bool {
	for _, pid := range s.Prerequisites {
		p, ok := j.Step(pid)
		if !ok || p.Status != models.StepStatusCompleted {
			return false
		}
	}
	return true
}

// mainSuccessor returns the next step by order after s whose path type is main,
// passing over skipped steps.
func mainSuccessor(j *models.Journey, s *models.Step) *models.Step {
	main := j.MainPath()
	for i, m := range main {
		if m.ID != s.ID {
			continue
		}
		for _, next := range main[i+1:] {
			if next.PathType == models.PathTypeMain && next.Status != models.StepStatusSkipped {
				return next
			}
		}
		return nil
	}
	return nil
}

// bypassSkipped rewires every dependent of a skipped step onto the skipped step's own
// prerequisites so the gate keeps requiring completed work only.
func bypassSkipped(j *models.Journey, skipped *models.Step) {
	for i := range j.Steps {
		d := &j.Steps[i]
		idx := slices.Index(d.Prerequisites, skipped.ID)
		if idx < 0 {
			continue
		}
		rewired := slices.Delete(slices.Clone(d.Prerequisites), idx, idx+1)
		for _, p := range skipped.Prerequisites {
			if p != d.ID && !slices.Contains(rewired, p) {
				rewired = append(rewired, p)
			}
		}
		d.Prerequisites = rewired
	}
}

// refresh recomputes the stored derived fields after a mutation.
func refresh(j *models.Journey, now time.Time) {
	j.OverallProgress = j.Progress()
	j.UpdatedAt = now
}
