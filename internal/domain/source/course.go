package source

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Course is a legacy-platform course post. Section markers are not rows of
// their own on the legacy side; they live in Meta under "course_sections"
// and share one ordinal numbering space with the course's lessons.
type Course struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Slug         string         `gorm:"column:slug;not null;index" json:"slug"`
	Status       string         `gorm:"column:status;not null;default:'publish'" json:"status"`
	Content      string         `gorm:"column:content;type:text" json:"content"`
	Excerpt      string         `gorm:"column:excerpt;type:text" json:"excerpt"`
	AuthorID     int64          `gorm:"column:author_id" json:"author_id"`
	FeatureImage string         `gorm:"column:feature_image" json:"feature_image"`
	Price        string         `gorm:"column:price" json:"price"`
	Settings     datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings"`
	Meta         datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Course) TableName() string { return "ld_course" }

// SectionMarker is one explicit section heading parsed out of course meta.
// Order is an offset into the shared lesson/marker ordinal space.
type SectionMarker struct {
	Order int    `json:"order"`
	Title string `json:"post_title"`
}

const metaKeySections = "course_sections"

// SectionMarkers decodes the marker list from course meta, sorted by order.
// A missing or malformed entry yields an empty list, never an error: legacy
// courses without explicit sections are common.
func (c *Course) SectionMarkers() []SectionMarker {
	if len(c.Meta) == 0 {
		return nil
	}
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(c.Meta, &meta); err != nil {
		return nil
	}
	raw, ok := meta[metaKeySections]
	if !ok {
		return nil
	}
	var markers []SectionMarker
	if err := json.Unmarshal(raw, &markers); err != nil {
		return nil
	}
	sort.SliceStable(markers, func(i, j int) bool { return markers[i].Order < markers[j].Order })
	return markers
}
