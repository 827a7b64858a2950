package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/lessonforge/internal/clients/openai"
	"github.com/yungbote/lessonforge/internal/config"
	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/platform/ctxutil"
	"github.com/yungbote/lessonforge/internal/platform/logger"
)

// PromptExpansionService turns a free-form prompt into a structured
// lesson. The offline/online decision is resolved once at construction
// (explicit policy), not per call: Offline true means the deterministic
// stub is always used; online failures also degrade to the stub so
// expansion never propagates a transport error.
type PromptExpansionService interface {
	Expand(ctx context.Context, prompt string, style domain.StyleTokens, defaults map[string]any) (*domain.Lesson, error)
}

type PromptExpansionOptions struct {
	Model   string
	Offline bool
}

type promptExpansionService struct {
	log  *logger.Logger
	ai   openai.Client
	opts PromptExpansionOptions
}

func NewPromptExpansionService(log *logger.Logger, ai openai.Client, opts PromptExpansionOptions) PromptExpansionService {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if ai == nil {
		opts.Offline = true
	}
	return &promptExpansionService{
		log:  log.With("service", "PromptExpansion"),
		ai:   ai,
		opts: opts,
	}
}

func (s *promptExpansionService) Expand(ctx context.Context, prompt string, style domain.StyleTokens, defaults map[string]any) (*domain.Lesson, error) {
	ctx = ctxutil.Default(ctx)
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt required")
	}

	if s.opts.Offline {
		return buildStubLesson(prompt, style, defaults), nil
	}

	lesson, err := s.expandOnline(ctx, prompt, style, defaults)
	if err != nil {
		s.log.Warn("online expansion failed, using offline stub", "error", err)
		return buildStubLesson(prompt, style, defaults), nil
	}
	return lesson, nil
}

func (s *promptExpansionService) expandOnline(ctx context.Context, prompt string, style domain.StyleTokens, defaults map[string]any) (*domain.Lesson, error) {
	system := "You are an instructional designer creating short educational videos. " +
		"Return a JSON object with lesson_id, topic, prompt, scenes. Each scene needs " +
		"id, title, summary, duration_target, narration (text + duration_seconds) and " +
		"events (id, at_seconds, type, payload). Keep narration chunks under three sentences."

	styleJSON, _ := json.Marshal(style)
	defaultsJSON, _ := json.Marshal(defaults)
	user := fmt.Sprintf("PROMPT:\n%s\n\nSTYLE TOKENS:\n%s\n\nDEFAULTS:\n%s\n\nProvide 3-4 scenes covering introduction, concept, and worked example. Return only JSON.",
		prompt, styleJSON, defaultsJSON)

	payload, err := s.ai.GenerateJSON(ctx, s.opts.Model, system, user)
	if err != nil {
		return nil, err
	}

	// Fill the envelope fields the model tends to omit before validating.
	if _, ok := payload["lesson_id"]; !ok {
		payload["lesson_id"] = domain.LessonIDFromPrompt(config.DefaultString(defaults, "lesson_id_prefix", "lesson"), prompt)
	}
	if _, ok := payload["topic"]; !ok {
		payload["topic"] = prompt
	}
	payload["prompt"] = prompt
	if _, ok := payload["style"]; !ok {
		var styleMap map[string]any
		_ = json.Unmarshal(styleJSON, &styleMap)
		payload["style"] = styleMap
	}
	if _, ok := payload["metadata"]; !ok {
		payload["metadata"] = map[string]any{
			"generated_at":  time.Now().UTC().Format(time.RFC3339),
			"source_prompt": prompt,
			"generator":     "openai:" + s.opts.Model,
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode expanded lesson: %w", err)
	}
	var lesson domain.Lesson
	if err := json.Unmarshal(raw, &lesson); err != nil {
		return nil, fmt.Errorf("expanded lesson does not match schema: %w", err)
	}
	if errs := lesson.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("expanded lesson invalid: %s", strings.Join(errs, "; "))
	}
	return &lesson, nil
}

// buildStubLesson is the deterministic offline expansion: same prompt and
// defaults always produce the same lesson, so pipeline runs are
// reproducible without network access.
func buildStubLesson(prompt string, style domain.StyleTokens, defaults map[string]any) *domain.Lesson {
	lessonID := domain.LessonIDFromPrompt(config.DefaultString(defaults, "lesson_id_prefix", "lesson"), prompt)
	chunkDur := config.DefaultFloat(defaults, "default_chunk_duration", 6.0)
	sceneDur := config.DefaultFloat(defaults, "default_scene_duration", 30.0)
	spacing := config.DefaultFloat(defaults, "event_spacing", 3.0)

	templates := []struct {
		title   string
		summary string
	}{
		{"Introduction", "Hook the learner and preview the key questions we will answer."},
		{"Concept Walkthrough", "Explain the core idea with supporting visuals and definitions."},
		{"Worked Example", "Apply the idea to a concrete problem with step-by-step narration."},
	}

	scenes := make([]domain.Scene, 0, len(templates))
	for i, tpl := range templates {
		sceneID := fmt.Sprintf("%s_scene%d", lessonID, i+1)
		narration := []domain.NarrationChunk{
			{Text: fmt.Sprintf("%s: narration tied to '%s'.", tpl.title, prompt), DurationSeconds: chunkDur},
			{Text: "Additional supporting narration for visuals.", DurationSeconds: chunkDur},
		}
		events := make([]domain.Event, 0, len(narration))
		for j, chunk := range narration {
			evType := "highlight"
			styleRole := "body"
			if j == 0 {
				evType = "show_text"
				styleRole = "title"
			}
			events = append(events, domain.Event{
				ID:        fmt.Sprintf("%s_event%d", sceneID, j),
				AtSeconds: float64(j) * spacing,
				Type:      evType,
				Payload:   map[string]any{"text": chunk.Text, "style": styleRole},
			})
		}
		scenes = append(scenes, domain.Scene{
			ID:             sceneID,
			Title:          tpl.title,
			Summary:        tpl.summary,
			DurationTarget: sceneDur,
			Narration:      narration,
			Events:         events,
		})
	}

	return &domain.Lesson{
		LessonID: lessonID,
		Topic:    config.DefaultString(defaults, "topic", prompt),
		Prompt:   prompt,
		Style:    style,
		Scenes:   scenes,
		Metadata: map[string]any{
			"source_prompt": prompt,
			"generator":     "offline_stub",
		},
	}
}
