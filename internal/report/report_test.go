package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/skillmeter/internal/model"
)

var fixedNow = time.Date(2026, 5, 17, 9, 30, 0, 0, time.UTC)

func fullEvaluation() *model.Evaluation {
	return &model.Evaluation{
		OverallScore: 80,
		Breakdown: []model.BreakdownEntry{
			{QuestionIndex: 0, Score: 100, Feedback: "Correct"},
			{QuestionIndex: 1, Score: 60, Feedback: strings.Repeat("long feedback ", 20)},
		},
		Strengths:       []string{"Goroutines"},
		Weaknesses:      []string{"Generics"},
		Recommendations: []string{"Write a generic Map function"},
	}
}

func sessions(scores ...float64) []model.QuizSession {
	out := make([]model.QuizSession, len(scores))
	for i, s := range scores {
		out[i] = model.QuizSession{Skill: "Go", Score: s, CreatedAt: fixedNow.Add(time.Duration(i) * 24 * time.Hour)}
	}
	return out
}

func TestPlan(t *testing.T) {
	b := New()

	t.Run("single session omits progression", func(t *testing.T) {
		plan := b.Plan(Input{Evaluation: fullEvaluation(), SkillSessions: sessions(80)})
		assert.Equal(t, []Section{
			SectionTitle, SectionScore, SectionQuestionChart, SectionBreakdown,
			SectionStrengths, SectionWeaknesses, SectionRecommendations,
		}, plan)
	})

	t.Run("history adds progression after score", func(t *testing.T) {
		plan := b.Plan(Input{Evaluation: fullEvaluation(), SkillSessions: sessions(60, 80, 100)})
		require.GreaterOrEqual(t, len(plan), 3)
		assert.Equal(t, SectionProgression, plan[2])
	})

	t.Run("empty lists are omitted but the breakdown heading stays", func(t *testing.T) {
		plan := b.Plan(Input{Evaluation: &model.Evaluation{OverallScore: 10}, SkillSessions: sessions(10)})
		assert.Equal(t, []Section{SectionTitle, SectionScore, SectionBreakdown}, plan)
	})
}

func TestBuild(t *testing.T) {
	b := New(WithClock(func() time.Time { return fixedNow }))

	for name, in := range map[string]Input{
		"single session": {Email: "ann@example.com", Skill: "Go", Evaluation: fullEvaluation(), SkillSessions: sessions(80)},
		"with history":   {Email: "ann@example.com", Skill: "Go", Evaluation: fullEvaluation(), SkillSessions: sessions(100, 60, 80)},
		"cyrillic text": {Email: "иван@example.com", Skill: "Базы данных", Evaluation: &model.Evaluation{
			OverallScore: 45,
			Breakdown:    []model.BreakdownEntry{{QuestionIndex: 0, Score: 45, Feedback: "Частично верно 🙂"}},
			Weaknesses:   []string{"Индексы"},
		}},
		"empty breakdown": {Email: "ann@example.com", Skill: "Go", Evaluation: &model.Evaluation{OverallScore: 10}},
	} {
		t.Run(name, func(t *testing.T) {
			doc, err := b.Build(in)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")), "not a PDF")
		})
	}
}

func TestBuildManyRowsPaginates(t *testing.T) {
	ev := &model.Evaluation{OverallScore: 50}
	for i := 0; i < 40; i++ {
		ev.Breakdown = append(ev.Breakdown, model.BreakdownEntry{QuestionIndex: i, Score: 50, Feedback: strings.Repeat("x ", 60)})
	}
	doc, err := New().Build(Input{Email: "a@b.c", Skill: "SQL", Evaluation: ev})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestBuildWithoutEvaluation(t *testing.T) {
	doc, err := New().Build(Input{Email: "a@b.c", Skill: "Go"})
	assert.Nil(t, doc)
	var rbe *model.ReportBuildError
	require.True(t, errors.As(err, &rbe))
	assert.Equal(t, "input", rbe.Stage)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Learning_Report_Go_20260517.pdf", Filename("Go", fixedNow))
	assert.Equal(t, "Learning_Report_Data_Structures_20260517.pdf", Filename("Data Structures", fixedNow))
	assert.NotContains(t, Filename(`a/b\c"d`, fixedNow), "/")
	assert.Equal(t, "Learning_Report_skill_20260517.pdf", Filename("", fixedNow))
}

func TestTruncateFeedback(t *testing.T) {
	short := "fine"
	assert.Equal(t, short, TruncateFeedback(short))

	exact := strings.Repeat("a", MaxFeedbackRunes)
	assert.Equal(t, exact, TruncateFeedback(exact))

	long := strings.Repeat("ж", MaxFeedbackRunes+1)
	got := TruncateFeedback(long)
	assert.Equal(t, strings.Repeat("ж", MaxFeedbackRunes)+"...", got)
}
