package progress

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/skillmeter/internal/model"
)

var day0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newestFirst builds a store-shaped history from scores given oldest first.
func newestFirst(skill string, scores ...float64) []model.QuizSession {
	out := make([]model.QuizSession, len(scores))
	for i, s := range scores {
		out[len(scores)-1-i] = model.QuizSession{
			ID:        model.SessionID(string(rune('a' + i))),
			Skill:     skill,
			Score:     s,
			CreatedAt: day0.AddDate(0, 0, i),
		}
	}
	return out
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	assert.True(t, sum.Empty)
	assert.Zero(t, sum.Count)
	assert.Empty(t, sum.Series)
}

func TestSummarizeProgression(t *testing.T) {
	sum := Summarize(newestFirst("Go", 60, 80, 100))

	require.False(t, sum.Empty)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 100.0, sum.Latest.Score)
	assert.InDelta(t, 80.0, sum.Average, 1e-9)

	require.Len(t, sum.Series, 3)
	var scores []float64
	for _, p := range sum.Series {
		scores = append(scores, p.Score)
	}
	assert.Equal(t, []float64{60, 80, 100}, scores)
	assert.True(t, sum.Series[0].At.Before(sum.Series[2].At))
}

func TestSummarizeSingle(t *testing.T) {
	sum := Summarize(newestFirst("Go", 42))
	assert.Equal(t, 1, sum.Count)
	assert.Equal(t, 42.0, sum.Latest.Score)
	assert.Equal(t, 42.0, sum.Average)
	assert.Len(t, sum.Series, 1)
}

func TestSeriesStableForTies(t *testing.T) {
	// Two sessions share a timestamp; newest-first input lists the later
	// insert first, so ascending order must put it last.
	history := []model.QuizSession{
		{ID: "2", Score: 90, CreatedAt: day0},
		{ID: "1", Score: 10, CreatedAt: day0},
	}
	pts := Series(history)
	require.Len(t, pts, 2)
	assert.Equal(t, 10.0, pts[0].Score)
	assert.Equal(t, 90.0, pts[1].Score)
	assert.Equal(t, "2", string(history[0].ID), "input must not be reordered")
}

func TestFilterSkillAndSkills(t *testing.T) {
	history := append(newestFirst("Python", 50, 70), newestFirst("Go", 90)...)

	assert.Equal(t, []string{"Python", "Go"}, Skills(history))

	goOnly := FilterSkill(history, "Go")
	require.Len(t, goOnly, 1)
	assert.Equal(t, 90.0, goOnly[0].Score)

	assert.Empty(t, FilterSkill(history, "go"), "skill match is case-sensitive")
}

func TestRecent(t *testing.T) {
	history := newestFirst("Go", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	recent := Recent(history, RecentLimit)
	require.Len(t, recent, 10)
	assert.Equal(t, 12.0, recent[0].Score)

	assert.Len(t, Recent(history[:3], RecentLimit), 3)
}

func TestBandOf(t *testing.T) {
	tests := []struct {
		score float64
		want  Band
	}{
		{100, BandStrong},
		{70, BandStrong},
		{69.9, BandFair},
		{50, BandFair},
		{49.9, BandWeak},
		{0, BandWeak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandOf(tt.score), "score %v", tt.score)
	}
}

func TestSummarizeIgnoresInputOrder(t *testing.T) {
	base := newestFirst("Go", 55.5, 90, 72.25, 40, 81)
	want := Summarize(base)
	require.Equal(t, model.SessionID("e"), want.Latest.ID)

	reversed := slices.Clone(base)
	slices.Reverse(reversed)
	shuffled := []model.QuizSession{base[2], base[0], base[4], base[1], base[3]}
	latestInMiddle := []model.QuizSession{base[3], base[1], base[0], base[4], base[2]}

	tests := map[string][]model.QuizSession{
		"oldest first":     reversed,
		"shuffled":         shuffled,
		"latest in middle": latestInMiddle,
	}
	for name, history := range tests {
		t.Run(name, func(t *testing.T) {
			got := Summarize(history)
			assert.Equal(t, want.Count, got.Count)
			assert.InDelta(t, want.Average, got.Average, 1e-9)
			assert.Equal(t, want.Latest.ID, got.Latest.ID)
			assert.Equal(t, want.Series, got.Series)
		})
	}
}
