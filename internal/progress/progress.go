// Package progress derives dashboard and report figures from a user's
// session history. All functions are pure.
package progress

import (
	"slices"
	"time"

	"github.com/pavelanni/skillmeter/internal/model"
)

// RecentLimit is how many sessions the dashboard table shows.
const RecentLimit = 10

// Point is one score at one time.
type Point struct {
	At    time.Time
	Score float64
}

// Summary aggregates a history. Latest and Average are meaningful only
// when Empty is false.
type Summary struct {
	Empty   bool
	Count   int
	Latest  model.QuizSession
	Average float64
	Series  []Point // ascending by time
}

// Summarize aggregates a newest-first history as returned by the store.
func Summarize(history []model.QuizSession) Summary {
	if len(history) == 0 {
		return Summary{Empty: true}
	}
	var total float64
	latest := history[0]
	for _, qs := range history {
		total += qs.Score
		if qs.CreatedAt.After(latest.CreatedAt) {
			latest = qs
		}
	}
	return Summary{
		Count:   len(history),
		Latest:  latest,
		Average: total / float64(len(history)),
		Series:  Series(history),
	}
}

// Series returns the scores in ascending time order. Sessions with equal
// timestamps keep their relative order from oldest-first history.
func Series(history []model.QuizSession) []Point {
	asc := Ascending(history)
	points := make([]Point, len(asc))
	for i, qs := range asc {
		points[i] = Point{At: qs.CreatedAt, Score: qs.Score}
	}
	return points
}

// Ascending returns a copy of a newest-first history sorted oldest first.
func Ascending(history []model.QuizSession) []model.QuizSession {
	asc := slices.Clone(history)
	slices.Reverse(asc)
	slices.SortStableFunc(asc, func(a, b model.QuizSession) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return asc
}

// FilterSkill keeps the sessions for one skill, preserving order.
func FilterSkill(history []model.QuizSession, skill string) []model.QuizSession {
	var out []model.QuizSession
	for _, qs := range history {
		if qs.Skill == skill {
			out = append(out, qs)
		}
	}
	return out
}

// Skills lists the distinct skills in the order first seen.
func Skills(history []model.QuizSession) []string {
	seen := make(map[string]bool)
	var out []string
	for _, qs := range history {
		if !seen[qs.Skill] {
			seen[qs.Skill] = true
			out = append(out, qs.Skill)
		}
	}
	return out
}

// Recent returns at most n sessions from the front of the history.
func Recent(history []model.QuizSession, n int) []model.QuizSession {
	if n < len(history) {
		return history[:n]
	}
	return history
}

// Band classifies a score for presentation.
type Band string

const (
	BandStrong Band = "strong"
	BandFair   Band = "fair"
	BandWeak   Band = "weak"
)

// PassThreshold is the score at which a result counts as strong.
const PassThreshold = 70

// BandOf classifies a score.
func BandOf(score float64) Band {
	switch {
	case score >= PassThreshold:
		return BandStrong
	case score >= 50:
		return BandFair
	default:
		return BandWeak
	}
}
