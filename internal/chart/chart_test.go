package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/progress"
)

func decodePNG(t *testing.T, b []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestScoreProgression(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []progress.Point{
		{At: base, Score: 60},
		{At: base.Add(24 * time.Hour), Score: 80},
		{At: base.Add(48 * time.Hour), Score: 100},
	}

	b, err := ScoreProgression(points, Options{Title: "Go"})
	require.NoError(t, err)
	w, h := decodePNG(t, b)
	assert.Equal(t, defaultWidth, w)
	assert.Equal(t, defaultHeight, h)
}

func TestScoreProgressionSinglePoint(t *testing.T) {
	b, err := ScoreProgression([]progress.Point{{At: time.Now(), Score: 42}}, Options{Width: 400, Height: 200})
	require.NoError(t, err)
	w, h := decodePNG(t, b)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)
}

func TestScoreProgressionFlatScores(t *testing.T) {
	now := time.Now()
	_, err := ScoreProgression([]progress.Point{{At: now, Score: 0}, {At: now, Score: 0}}, Options{})
	require.NoError(t, err)
}

func TestQuestionScores(t *testing.T) {
	b, err := QuestionScores([]model.BreakdownEntry{
		{QuestionIndex: 0, Score: 100},
		{QuestionIndex: 1, Score: 0},
		{QuestionIndex: 2, Score: 55.5},
	}, Options{})
	require.NoError(t, err)
	decodePNG(t, b)
}

func TestNoData(t *testing.T) {
	_, err := ScoreProgression(nil, Options{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = QuestionScores(nil, Options{})
	assert.ErrorIs(t, err, ErrNoData)
}
