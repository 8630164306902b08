package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/progress"
)

// ExportHistory builds an export of every session the user with the given
// email has recorded, oldest first.
func ExportHistory(ctx context.Context, s Store, email string, now time.Time) (*model.HistoryExport, error) {
	u, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}
	history, err := s.GetUserSessions(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	exp := &model.HistoryExport{
		Email:       u.Email,
		ExportedAt:  now.UTC(),
		NumSessions: len(history),
		Sessions:    []model.SessionResult{},
	}
	if sum := progress.Summarize(history); !sum.Empty {
		avg := sum.Average
		exp.AverageScore = &avg
	}

	// Stored newest first; number sessions from the oldest.
	for i := len(history) - 1; i >= 0; i-- {
		qs := history[i]
		exp.Sessions = append(exp.Sessions, model.SessionResult{
			SessionNumber: len(exp.Sessions) + 1,
			Skill:         qs.Skill,
			TakenAt:       qs.CreatedAt,
			Score:         qs.Score,
			Questions:     exportQuestions(qs),
			Strengths:     qs.Evaluation.Strengths,
			Weaknesses:    qs.Evaluation.Weaknesses,
			Recommended:   qs.Evaluation.Recommendations,
		})
	}
	return exp, nil
}

func exportQuestions(qs model.QuizSession) []model.QuestionResult {
	byIndex := make(map[int]model.BreakdownEntry, len(qs.Evaluation.Breakdown))
	for _, b := range qs.Evaluation.Breakdown {
		byIndex[b.QuestionIndex] = b
	}
	out := make([]model.QuestionResult, 0, len(qs.Questions))
	for i, q := range qs.Questions {
		qr := model.QuestionResult{
			Type:            q.Type,
			Text:            q.Text,
			Options:         q.Options,
			ReferenceAnswer: q.ReferenceAnswer,
		}
		if i < len(qs.Answers) {
			qr.Answer = qs.Answers[i]
		}
		if b, ok := byIndex[i]; ok {
			score := b.Score
			qr.Score = &score
			qr.Feedback = b.Feedback
		}
		out = append(out, qr)
	}
	return out
}
