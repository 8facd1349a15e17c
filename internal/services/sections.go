package services

import (
	"errors"
	"math"
	"sort"

	"github.com/coursebridge/migration-backend/internal/domain/source"
)

// ErrOverlappingSections reports a marker list whose computed intervals
// collide. The course fails as a whole rather than guessing an assignment.
var ErrOverlappingSections = errors.New("overlapping section intervals")

// FinalQuizSectionName holds quizzes attached directly to a course rather
// than to a lesson.
const FinalQuizSectionName = "Final Quizzes"

// SectionPlan is one section to create, with the lessons it owns in
// curriculum order. Quizzes is set only on the trailing final-quiz plan.
type SectionPlan struct {
	Name      string
	Synthetic bool
	Lessons   []*source.LessonTree
	Quizzes   []*source.QuizTree
}

// PartitionSections computes the section layout of a course from its
// marker list and lesson sequence.
//
// Markers and lessons share one ordinal numbering space on the legacy
// side: marker i with stored order o_i covers the lessons whose ordinal
// falls in [o_i - i, o_{i+1} - (i+1)); the last marker is unbounded on the
// right. Lessons covered by no marker each become a synthetic section
// named after the lesson. The resulting sections are ordered by a blended
// key, markers at order + 0.5 and synthetic sections at the lesson's raw
// ordinal, so a marker sorts between the lesson at its own ordinal and the
// next one. Explicit sections that end up empty are dropped.
func PartitionSections(tree *source.CourseTree) ([]SectionPlan, error) {
	markers := tree.Markers
	lessons := tree.Lessons

	type interval struct {
		start, end int
	}
	intervals := make([]interval, len(markers))
	for i, marker := range markers {
		start := marker.Order - i
		end := math.MaxInt
		if i+1 < len(markers) {
			end = markers[i+1].Order - (i + 1)
		}
		if end < start {
			return nil, ErrOverlappingSections
		}
		intervals[i] = interval{start: start, end: end}
	}

	type unit struct {
		key  float64
		plan SectionPlan
	}
	var units []unit

	assigned := make([]bool, len(lessons))
	for i, marker := range markers {
		plan := SectionPlan{Name: marker.Title}
		for ordinal, lesson := range lessons {
			if ordinal >= intervals[i].start && ordinal < intervals[i].end {
				plan.Lessons = append(plan.Lessons, lesson)
				assigned[ordinal] = true
			}
		}
		if len(plan.Lessons) == 0 {
			continue
		}
		units = append(units, unit{key: float64(marker.Order) + 0.5, plan: plan})
	}

	for ordinal, lesson := range lessons {
		if assigned[ordinal] {
			continue
		}
		units = append(units, unit{
			key: float64(ordinal),
			plan: SectionPlan{
				Name:      lesson.Lesson.Title,
				Synthetic: true,
				Lessons:   []*source.LessonTree{lesson},
			},
		})
	}

	sort.SliceStable(units, func(i, j int) bool { return units[i].key < units[j].key })

	plans := make([]SectionPlan, 0, len(units)+1)
	for _, u := range units {
		plans = append(plans, u.plan)
	}

	if len(tree.CourseQuizzes) > 0 {
		plans = append(plans, SectionPlan{
			Name:    FinalQuizSectionName,
			Quizzes: tree.CourseQuizzes,
		})
	}
	return plans, nil
}
