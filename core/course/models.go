package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/talimhq/talim/core"
)

// Lesson types
const (
	LessonVideo = "video"
	LessonText  = "text"
	LessonQuiz  = "quiz"
	LessonPDF   = "pdf"
)

type Lesson struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	Type            string `json:"type" validate:"omitempty,oneof=video text quiz pdf"`
	VideoURL        string `json:"video_url,omitempty"`
	PDFURL          string `json:"pdf_url,omitempty"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0"`
}

// Viewable reports whether the lesson has the media it needs to be rendered.
// A pdf lesson expects its PDFURL before being viewable.
func (l Lesson) Viewable() bool {
	if l.Type == LessonPDF {
		return l.PDFURL != ""
	}
	return true
}

type Module struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

type Course struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	InstructorID  string   `json:"instructor_id"`
	ThumbnailURL  string   `json:"thumbnail_url"`
	Modules       []Module `json:"modules"`
	Published     bool     `json:"published"`
	TotalDuration int      `json:"total_duration"` // minutes
	// StudentsEnrolled is derived from the live enrollment count, never stored.
	StudentsEnrolled int       `json:"students_enrolled"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// TotalLessons counts the lessons across all modules.
func (c Course) TotalLessons() int {
	var total int
	for _, mod := range c.Modules {
		total += len(mod.Lessons)
	}
	return total
}

// LessonIDs returns the set of lesson IDs across all modules.
func (c Course) LessonIDs() map[string]struct{} {
	ids := make(map[string]struct{}, c.TotalLessons())
	for _, mod := range c.Modules {
		for _, les := range mod.Lessons {
			ids[les.ID] = struct{}{}
		}
	}
	return ids
}

// ComputeTotalDuration sums all lesson durations across modules.
func (c Course) ComputeTotalDuration() int {
	var total int
	for _, mod := range c.Modules {
		for _, les := range mod.Lessons {
			total += les.DurationMinutes
		}
	}
	return total
}

// EnsureIDs assigns fresh UUIDs to modules and lessons that have none and
// defaults untyped lessons to text.
func EnsureIDs(modules []Module) []Module {
	for i := range modules {
		if modules[i].ID == "" {
			modules[i].ID = uuid.NewString()
		}
		for j := range modules[i].Lessons {
			if modules[i].Lessons[j].ID == "" {
				modules[i].Lessons[j].ID = uuid.NewString()
			}
			if modules[i].Lessons[j].Type == "" {
				modules[i].Lessons[j].Type = LessonText
			}
		}
	}
	return modules
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	ThumbnailURL string   `json:"thumbnail_url" validate:"omitempty,url"`
	Modules      []Module `json:"modules" validate:"dive"`
	Published    bool     `json:"published"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Category = core.CleanString(nc.Category)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	ThumbnailURL string   `json:"thumbnail_url" validate:"omitempty,url"`
	Modules      []Module `json:"modules" validate:"dive"`
	Published    *bool    `json:"published"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate, origCrs Course) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = origCrs.Title
	}
	uc.Category = core.CleanString(uc.Category)
	return validate.Struct(uc)
}

// GenerateRequest asks the curriculum generator for a course outline.
type GenerateRequest struct {
	Topic string `json:"topic" validate:"required"`
}

func (gr *GenerateRequest) Validate(validate *validator.Validate) error {
	gr.Topic = core.CleanString(gr.Topic)
	return validate.Struct(gr)
}
