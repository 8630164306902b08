package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/skillmeter/internal/llm/prompts"
	"github.com/pavelanni/skillmeter/internal/model"
)

const (
	generateSystemPrompt = "You are an expert examiner who writes diagnostic questions to assess a learner's knowledge. You reply with JSON only."
	evaluateSystemPrompt = "You are a fair, consistent grader of quiz answers. You reply with JSON only."

	// Grading runs cooler than generation so repeated evaluations agree.
	evalTemperature = 0.1
)

// QuizGenerator produces question sets for a skill.
type QuizGenerator struct {
	provider Provider
	cfg      Config
	lang     string
}

// NewQuizGenerator creates a generator. lang selects the question
// language ("en" or "ru").
func NewQuizGenerator(p Provider, cfg Config, lang string) *QuizGenerator {
	return &QuizGenerator{provider: p, cfg: cfg, lang: lang}
}

type questionSet struct {
	Questions []model.Question `json:"questions"`
}

// Generate asks the provider for count questions on skill. A response with
// more than count questions is truncated; fewer is accepted. Every failure
// is a *model.GenerationError.
func (g *QuizGenerator) Generate(ctx context.Context, skill string, count int) ([]model.Question, error) {
	fail := func(err error) ([]model.Question, error) {
		return nil, &model.GenerationError{Skill: skill, Err: err}
	}
	if count <= 0 {
		return fail(&model.ValidationError{Field: "count", Reason: model.ReasonOutOfRange})
	}

	prompt, err := prompts.BuildGeneratePrompt(skill, count, g.lang)
	if err != nil {
		return fail(fmt.Errorf("build prompt: %w", err))
	}

	resp, err := g.provider.Generate(WithPurpose(ctx, PurposeGenerate), Request{
		System:      generateSystemPrompt,
		Prompt:      prompt,
		Schema:      QuestionSetSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return fail(err)
	}
	slog.Debug("LLM response", "purpose", PurposeGenerate, "raw", string(resp.Content))

	raw := stripCodeFences(resp.Content)
	// Some models return the bare list instead of the wrapping object.
	if bytes.HasPrefix(raw, []byte("[")) {
		raw = append(append([]byte(`{"questions":`), raw...), '}')
	}

	var set questionSet
	if err := decode(questionSetResponseSchema, raw, &set); err != nil {
		return fail(err)
	}
	if len(set.Questions) > count {
		set.Questions = set.Questions[:count]
	}
	if err := model.ValidateQuestions(set.Questions); err != nil {
		return fail(err)
	}
	return set.Questions, nil
}

// AnswerEvaluator grades a completed quiz.
type AnswerEvaluator struct {
	provider Provider
	cfg      Config
	lang     string
	variant  prompts.Variant
}

// NewAnswerEvaluator creates an evaluator. An empty variant grades with
// the standard prompt.
func NewAnswerEvaluator(p Provider, cfg Config, lang string, variant prompts.Variant) *AnswerEvaluator {
	return &AnswerEvaluator{provider: p, cfg: cfg, lang: lang, variant: variant}
}

// Evaluate grades answers against questions. answers must be parallel to
// questions. Every failure is a *model.EvaluationError.
func (e *AnswerEvaluator) Evaluate(ctx context.Context, skill string, questions []model.Question, answers []string) (model.Evaluation, error) {
	fail := func(err error) (model.Evaluation, error) {
		return model.Evaluation{}, &model.EvaluationError{Skill: skill, Err: err}
	}
	if len(questions) != len(answers) {
		return fail(&model.ValidationError{Field: "answers", Reason: model.ReasonLengthMismatch})
	}

	prompt, err := prompts.BuildEvalPrompt(e.variant, skill, questions, answers, e.lang)
	if err != nil {
		return fail(fmt.Errorf("build prompt: %w", err))
	}

	resp, err := e.provider.Generate(WithPurpose(ctx, PurposeEvaluate), Request{
		System:      evaluateSystemPrompt,
		Prompt:      prompt,
		Schema:      EvaluationSchema,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: evalTemperature,
	})
	if err != nil {
		return fail(err)
	}
	slog.Debug("LLM response", "purpose", PurposeEvaluate, "raw", string(resp.Content))

	var ev model.Evaluation
	if err := decode(EvaluationSchema, stripCodeFences(resp.Content), &ev); err != nil {
		return fail(err)
	}
	if err := ev.Validate(len(questions)); err != nil {
		return fail(err)
	}
	return ev, nil
}

func decode(schema *Schema, raw []byte, v any) error {
	if err := validateResponse(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("decode %s: %w", schema.Name, err)}
	}
	return nil
}
