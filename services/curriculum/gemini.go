// Package curriculumsvc generates course outlines with Google's Gemini API.
package curriculumsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/course"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta"

var ErrNoAPIKey = errors.New("gemini API key not configured")

type (
	geminiService struct {
		client *resty.Client
		model  string
	}

	// request/response shapes, trimmed to what we use
	generateRequest struct {
		Contents         []content        `json:"contents"`
		GenerationConfig generationConfig `json:"generationConfig"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	part struct {
		Text string `json:"text"`
	}
	generationConfig struct {
		ResponseMimeType string          `json:"responseMimeType"`
		ResponseSchema   json.RawMessage `json:"responseSchema"`
	}

	generateResponse struct {
		Candidates []struct {
			Content struct {
				Parts []part `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	generatedModule struct {
		Title   string `json:"title"`
		Lessons []struct {
			Title           string `json:"title"`
			Content         string `json:"content"`
			DurationMinutes int    `json:"durationMinutes"`
			Type            string `json:"type"`
		} `json:"lessons"`
	}
)

var _ course.Generator = (*geminiService)(nil)

// responseSchema constrains the model to a module/lesson array.
var responseSchema = json.RawMessage(`{
	"type": "ARRAY",
	"items": {
		"type": "OBJECT",
		"properties": {
			"title": {"type": "STRING", "description": "Module title"},
			"lessons": {
				"type": "ARRAY",
				"items": {
					"type": "OBJECT",
					"properties": {
						"title": {"type": "STRING", "description": "Lesson title"},
						"content": {"type": "STRING", "description": "Brief lesson content/summary"},
						"durationMinutes": {"type": "INTEGER", "description": "Estimated minutes"},
						"type": {"type": "STRING", "enum": ["text", "video"], "description": "Type of lesson"}
					},
					"required": ["title", "content", "durationMinutes", "type"]
				}
			}
		},
		"required": ["title", "lessons"]
	}
}`)

func NewGeminiService(conf *core.Config) (*geminiService, error) {
	if conf.GeminiAPIKey == "" {
		return nil, ErrNoAPIKey
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("x-goog-api-key", conf.GeminiAPIKey).
		SetTimeout(2 * time.Minute)

	return &geminiService{client: client, model: conf.GeminiModel}, nil
}

func (svc *geminiService) GenerateCurriculum(ctx context.Context, topic string) ([]course.Module, error) {
	prompt := fmt.Sprintf(`Create a detailed course curriculum for a course about %q.
Generate 3-4 modules, and for each module generate 2-3 lessons.
Each lesson should have a brief educational content summary (2-3 sentences).
Estimate duration for each lesson.`, topic)

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	var res generateResponse
	resp, err := svc.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&res).
		SetError(&res).
		Post("/models/" + svc.model + ":generateContent")
	if err != nil {
		return nil, errors.Wrap(err, "calling gemini")
	}
	if resp.IsError() {
		msg := resp.Status()
		if res.Error != nil {
			msg = res.Error.Message
		}
		return nil, errors.Errorf("calling gemini: %s", msg)
	}
	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}

	var generated []generatedModule
	if err = json.Unmarshal([]byte(res.Candidates[0].Content.Parts[0].Text), &generated); err != nil {
		return nil, errors.Wrap(err, "decoding generated curriculum")
	}

	modules := make([]course.Module, 0, len(generated))
	for _, mod := range generated {
		m := course.Module{Title: mod.Title}
		for _, les := range mod.Lessons {
			l := course.Lesson{
				Title:           les.Title,
				Content:         les.Content,
				Type:            les.Type,
				DurationMinutes: les.DurationMinutes,
			}
			if l.DurationMinutes == 0 {
				l.DurationMinutes = 10
			}
			m.Lessons = append(m.Lessons, l)
		}
		modules = append(modules, m)
	}
	return course.EnsureIDs(modules), nil
}
