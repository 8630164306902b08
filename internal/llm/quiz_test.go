package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/skillmeter/internal/llm/prompts"
	"github.com/pavelanni/skillmeter/internal/model"
)

const threeQuestions = `{"questions": [
  {"type": "mcq", "question": "Q1", "options": ["a", "b"], "correct_answer": "a"},
  {"type": "short_answer", "question": "Q2", "options": [], "correct_answer": "x"},
  {"type": "mcq", "question": "Q3", "options": ["c", "d", "e"], "correct_answer": "e"}
]}`

func newGenerator(responses ...MockResponse) (*QuizGenerator, *MockProvider) {
	mock := NewMockProvider(responses...)
	return NewQuizGenerator(mock, DefaultConfig(), "en"), mock
}

func TestGenerate(t *testing.T) {
	g, mock := newGenerator(MockResponse{Content: json.RawMessage(threeQuestions)})

	qs, err := g.Generate(context.Background(), "Go", 3)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, model.QuestionMCQ, qs[0].Type)
	assert.Equal(t, []string{"a", "b"}, qs[0].Options)
	assert.Equal(t, model.QuestionShortAnswer, qs[1].Type)
	assert.Empty(t, qs[1].Options)
	assert.Equal(t, "e", qs[2].ReferenceAnswer)

	require.Equal(t, 1, mock.CallCount())
	call := mock.Calls[0]
	assert.Same(t, QuestionSetSchema, call.Schema)
	assert.Contains(t, call.Prompt, `"Go"`)
	assert.Equal(t, DefaultConfig().MaxTokens, call.MaxTokens)
}

func TestGenerateTruncatesExtraQuestions(t *testing.T) {
	g, _ := newGenerator(MockResponse{Content: json.RawMessage(threeQuestions)})
	qs, err := g.Generate(context.Background(), "Go", 2)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func TestGenerateAcceptsFewerQuestions(t *testing.T) {
	g, _ := newGenerator(MockResponse{Content: json.RawMessage(threeQuestions)})
	qs, err := g.Generate(context.Background(), "Go", 5)
	require.NoError(t, err)
	assert.Len(t, qs, 3)
}

func TestGenerateToleratesFencesAndBareList(t *testing.T) {
	bare := "```json\n" + `[{"type": "mcq", "question": "Q1", "options": ["a", "b"], "correct_answer": "a"}]` + "\n```"
	g, _ := newGenerator(MockResponse{Content: json.RawMessage(bare)})
	qs, err := g.Generate(context.Background(), "SQL", 1)
	require.NoError(t, err)
	assert.Equal(t, "Q1", qs[0].Text)
}

func TestGenerateAcceptsMissingShortAnswerOptions(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bare list", `[{"type": "mcq", "question": "Q1", "options": ["a", "b"], "correct_answer": "a"}, {"type": "short_answer", "question": "Explain X.", "correct_answer": "X is..."}]`},
		{"wrapped", `{"questions": [{"type": "short_answer", "question": "Explain X.", "correct_answer": "X is..."}, {"type": "mcq", "question": "Q1", "options": ["a", "b"], "correct_answer": "a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newGenerator(MockResponse{Content: json.RawMessage(tt.content)})
			qs, err := g.Generate(context.Background(), "SQL", 2)
			require.NoError(t, err)
			require.Len(t, qs, 2)
			for _, q := range qs {
				if q.Type == model.QuestionShortAnswer {
					assert.Equal(t, "Explain X.", q.Text)
					assert.Empty(t, q.Options)
				}
			}
		})
	}
}

func TestGenerateRejectsMCQWithoutOptions(t *testing.T) {
	g, _ := newGenerator(MockResponse{Content: json.RawMessage(`[{"type": "mcq", "question": "Q1", "correct_answer": "a"}]`)})
	_, err := g.Generate(context.Background(), "SQL", 1)
	var genErr *model.GenerationError
	require.ErrorAs(t, err, &genErr)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		resp MockResponse
	}{
		{"provider error", MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}},
		{"not json", MockResponse{Content: json.RawMessage(`Sure! Here are your questions`)}},
		{"schema mismatch", MockResponse{Content: json.RawMessage(`{"items": []}`)}},
		{"empty set", MockResponse{Content: json.RawMessage(`{"questions": []}`)}},
		{"unknown type", MockResponse{Content: json.RawMessage(`{"questions": [{"type": "essay", "question": "Q", "options": [], "correct_answer": ""}]}`)}},
		{"mcq with one option", MockResponse{Content: json.RawMessage(`{"questions": [{"type": "mcq", "question": "Q", "options": ["a"], "correct_answer": "a"}]}`)}},
		{"empty question text", MockResponse{Content: json.RawMessage(`{"questions": [{"type": "short_answer", "question": " ", "options": [], "correct_answer": "a"}]}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newGenerator(tt.resp)
			qs, err := g.Generate(context.Background(), "Go", 3)
			assert.Nil(t, qs)
			var genErr *model.GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, "Go", genErr.Skill)
		})
	}
}

func TestGenerateRejectsNonPositiveCount(t *testing.T) {
	g, mock := newGenerator()
	_, err := g.Generate(context.Background(), "Go", 0)
	var genErr *model.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Zero(t, mock.CallCount())
}

var evalQuestions = []model.Question{
	{Type: model.QuestionMCQ, Text: "Q1", Options: []string{"a", "b"}, ReferenceAnswer: "a"},
	{Type: model.QuestionShortAnswer, Text: "Q2", ReferenceAnswer: "x"},
}

const validEvaluation = `{
  "overall_score": 75,
  "question_wise_breakdown": [
    {"question_index": 0, "score": 100, "feedback": "Correct"},
    {"question_index": 1, "score": 50, "feedback": "Partly"}
  ],
  "strengths": ["basics"],
  "weaknesses": [],
  "study_recommendations": ["read the tour"]
}`

func TestEvaluate(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(validEvaluation)})
	e := NewAnswerEvaluator(mock, DefaultConfig(), "en", prompts.VariantStrict)

	ev, err := e.Evaluate(context.Background(), "Go", evalQuestions, []string{"a", "something"})
	require.NoError(t, err)
	assert.Equal(t, 75.0, ev.OverallScore)
	require.Len(t, ev.Breakdown, 2)
	assert.Equal(t, 50.0, ev.Breakdown[1].Score)
	assert.Equal(t, []string{"basics"}, ev.Strengths)
	assert.Empty(t, ev.Weaknesses)

	call := mock.Calls[0]
	assert.Same(t, EvaluationSchema, call.Schema)
	assert.InDelta(t, evalTemperature, call.Temperature, 1e-9)
	prompt := call.Prompt
	assert.Contains(t, prompt, "something")
	assert.False(t, strings.Contains(prompt, `"x"`), "reference answer leaked into prompt")
}

func TestEvaluateFailures(t *testing.T) {
	tests := []struct {
		name    string
		resp    MockResponse
		answers []string
	}{
		{"length mismatch", MockResponse{Content: json.RawMessage(validEvaluation)}, []string{"a"}},
		{"provider error", MockResponse{Err: &ErrProviderUnavailable{Status: 429, Err: errors.New("rate limited")}}, []string{"a", "b"}},
		{"missing field", MockResponse{Content: json.RawMessage(`{"overall_score": 10}`)}, []string{"a", "b"}},
		{"score out of range", MockResponse{Content: json.RawMessage(strings.Replace(validEvaluation, "75", "175", 1))}, []string{"a", "b"}},
		{"index out of range", MockResponse{Content: json.RawMessage(strings.Replace(validEvaluation, `"question_index": 1`, `"question_index": 2`, 1))}, []string{"a", "b"}},
		{"duplicate index", MockResponse{Content: json.RawMessage(strings.Replace(validEvaluation, `"question_index": 1`, `"question_index": 0`, 1))}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewAnswerEvaluator(NewMockProvider(tt.resp), DefaultConfig(), "en", "")
			_, err := e.Evaluate(context.Background(), "Go", evalQuestions, tt.answers)
			var evErr *model.EvaluationError
			require.ErrorAs(t, err, &evErr)
			assert.Equal(t, "Go", evErr.Skill)
		})
	}
}

func TestEvaluateWithDemoProvider(t *testing.T) {
	demo := NewDemoProvider()
	qs, err := NewQuizGenerator(demo, DefaultConfig(), "en").Generate(context.Background(), "Go", 5)
	require.NoError(t, err)
	require.Len(t, qs, 5)

	answers := make([]string, len(qs))
	for i := range answers {
		answers[i] = "answer"
	}
	ev, err := NewAnswerEvaluator(demo, DefaultConfig(), "en", "").Evaluate(context.Background(), "Go", qs, answers)
	require.NoError(t, err)
	assert.Equal(t, 72.0, ev.OverallScore)
}
