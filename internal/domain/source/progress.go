package source

import (
	"encoding/json"
	"strconv"
)

// CourseProgress is the decoded per-course slice of a user's progress blob.
// Lessons maps lesson id to its completed flag; Topics maps lesson id to a
// topic-id → completed map (the blob nests topics under their lesson even
// though the target flattens them).
type CourseProgress struct {
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	IsDone    bool             `json:"is_done"`
	Lessons   map[int64]bool   `json:"-"`
	Topics    map[int64]map[int64]bool `json:"-"`
}

type rawCourseProgress struct {
	Completed int                        `json:"completed"`
	Total     int                        `json:"total"`
	IsDone    bool                       `json:"is_done"`
	Lessons   map[string]bool            `json:"lessons"`
	Topics    map[string]map[string]bool `json:"topics"`
}

// ParseProgressBlob decodes a progress blob into per-course progress keyed
// by course id. JSON object keys are strings on the wire; non-numeric keys
// are dropped rather than erroring so one corrupt entry cannot sink a user.
func ParseProgressBlob(data []byte) (map[int64]CourseProgress, error) {
	out := map[int64]CourseProgress{}
	if len(data) == 0 {
		return out, nil
	}
	var raw map[string]rawCourseProgress
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for key, rp := range raw {
		courseID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		cp := CourseProgress{
			Completed: rp.Completed,
			Total:     rp.Total,
			IsDone:    rp.IsDone,
			Lessons:   map[int64]bool{},
			Topics:    map[int64]map[int64]bool{},
		}
		for lk, done := range rp.Lessons {
			if id, err := strconv.ParseInt(lk, 10, 64); err == nil {
				cp.Lessons[id] = done
			}
		}
		for lk, topics := range rp.Topics {
			lessonID, err := strconv.ParseInt(lk, 10, 64)
			if err != nil {
				continue
			}
			tm := map[int64]bool{}
			for tk, done := range topics {
				if id, err := strconv.ParseInt(tk, 10, 64); err == nil {
					tm[id] = done
				}
			}
			cp.Topics[lessonID] = tm
		}
		out[courseID] = cp
	}
	return out, nil
}
