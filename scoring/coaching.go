package scoring

import "sort"

// PriorityThreshold is the score under which a category is worth working on.
const PriorityThreshold = 8.0

// Priority is a category that needs attention.
type Priority struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Coaching is the advisory section of a report.
type Coaching struct {
	Assessment string              `json:"overall_assessment"`
	Priorities []Priority          `json:"improvement_priorities"`
	Exercises  map[string][]string `json:"recommended_exercises,omitempty"`
	Advice     string              `json:"advice,omitempty"`
	Source     string              `json:"source"`
}

// Coach builds coaching locally from feedback bands and an exercise
// catalogue.
type Coach struct {
	mapper    *Mapper
	exercises map[string][]string
}

// NewCoach uses the "overall" bands of m for the assessment.
func NewCoach(m *Mapper, exercises map[string][]string) *Coach {
	return &Coach{mapper: m, exercises: exercises}
}

// Advise ranks categories under PriorityThreshold from weakest to strongest
// and attaches their exercises.
func (c *Coach) Advise(total float64, scores map[string]float64) *Coaching {
	out := &Coaching{
		Assessment: c.mapper.Feedback(Overall, total),
		Exercises:  map[string][]string{},
		Source:     "local",
	}
	for cat, s := range scores {
		if s < PriorityThreshold {
			out.Priorities = append(out.Priorities, Priority{Category: cat, Score: s})
		}
	}
	sort.Slice(out.Priorities, func(i, j int) bool {
		a, b := out.Priorities[i], out.Priorities[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Category < b.Category
	})
	for _, p := range out.Priorities {
		if ex := c.exercises[p.Category]; len(ex) > 0 {
			out.Exercises[p.Category] = append([]string(nil), ex...)
		}
	}
	return out
}
