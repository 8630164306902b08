package model

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserID is the backend-assigned user identifier. SQLite assigns decimal
// integers, MongoDB assigns ObjectID hex strings; both travel as strings.
type UserID string

// String returns the identifier as stored.
func (id UserID) String() string { return string(id) }

// Int64 parses the identifier as a numeric row ID.
func (id UserID) Int64() (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "user_id", Reason: ReasonMalformed}
	}
	return n, nil
}

// NormalizeUserID accepts a user identifier in any of the shapes callers
// carry it around in and returns its canonical form.
func NormalizeUserID(v any) (UserID, error) {
	var s string
	switch id := v.(type) {
	case UserID:
		s = string(id)
	case string:
		s = id
	case int:
		s = strconv.Itoa(id)
	case int64:
		s = strconv.FormatInt(id, 10)
	case fmt.Stringer:
		s = id.String()
	default:
		return "", &ValidationError{Field: "user_id", Reason: ReasonMalformed}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: "user_id", Reason: ReasonRequired}
	}
	return UserID(s), nil
}

// SessionID identifies a stored quiz session.
type SessionID string

// User represents a registered user.
type User struct {
	ID           UserID    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// QuestionType tags how a question is answered.
type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionShortAnswer QuestionType = "short_answer"
)

// Question is one quiz question as produced by the question source.
// ReferenceAnswer is never shown to the user.
type Question struct {
	Type            QuestionType `json:"type" bson:"type"`
	Text            string       `json:"question" bson:"question"`
	Options         []string     `json:"options,omitempty" bson:"options,omitempty"`
	ReferenceAnswer string       `json:"correct_answer" bson:"correct_answer"`
}

// BreakdownEntry scores a single answer.
type BreakdownEntry struct {
	QuestionIndex int     `json:"question_index" bson:"question_index"`
	Score         float64 `json:"score" bson:"score"`
	Feedback      string  `json:"feedback" bson:"feedback"`
}

// Evaluation is the structured assessment of one quiz attempt.
type Evaluation struct {
	OverallScore    float64          `json:"overall_score" bson:"overall_score"`
	Breakdown       []BreakdownEntry `json:"question_wise_breakdown" bson:"question_wise_breakdown"`
	Strengths       []string         `json:"strengths" bson:"strengths"`
	Weaknesses      []string         `json:"weaknesses" bson:"weaknesses"`
	Recommendations []string         `json:"study_recommendations" bson:"study_recommendations"`
}

// QuizSession is one completed, immutable quiz attempt.
type QuizSession struct {
	ID         SessionID  `json:"id"`
	UserID     UserID     `json:"user_id"`
	Skill      string     `json:"skill_name"`
	Questions  []Question `json:"questions"`
	Answers    []string   `json:"user_answers"`
	Evaluation Evaluation `json:"evaluation"`
	Score      float64    `json:"score"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewSession carries everything needed to record a quiz attempt.
type NewSession struct {
	UserID     UserID
	Skill      string
	Questions  []Question
	Answers    []string
	Evaluation Evaluation
	Score      float64
}

// Validate checks the invariants every stored session must satisfy.
func (n NewSession) Validate() error {
	if n.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: ReasonRequired}
	}
	if strings.TrimSpace(n.Skill) == "" {
		return &ValidationError{Field: "skill", Reason: ReasonRequired}
	}
	if len(n.Answers) != len(n.Questions) {
		return &ValidationError{Field: "answers", Reason: ReasonLengthMismatch}
	}
	if !validScore(n.Score) {
		return &ValidationError{Field: "score", Reason: ReasonOutOfRange}
	}
	return nil
}

// Config holds runtime web UI parameters set via CLI flags.
type Config struct {
	NumQuestions  int    // questions requested per quiz
	BasePath      string // URL prefix for sub-path deployments
	SecureCookies bool   // set Secure flag on cookies (disable for local dev)
	LoginRate     int    // login/register attempts per minute per client
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
