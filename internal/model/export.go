package model

import "time"

// HistoryExport is the top-level JSON structure for a user's history export.
type HistoryExport struct {
	Email        string          `json:"email"`
	ExportedAt   time.Time       `json:"exported_at"`
	NumSessions  int             `json:"num_sessions"`
	AverageScore *float64        `json:"average_score,omitempty"`
	Sessions     []SessionResult `json:"sessions"`
}

// SessionResult holds one quiz attempt for export.
type SessionResult struct {
	SessionNumber int              `json:"session_number"`
	Skill         string           `json:"skill"`
	TakenAt       time.Time        `json:"taken_at"`
	Score         float64          `json:"score"`
	Questions     []QuestionResult `json:"questions"`
	Strengths     []string         `json:"strengths"`
	Weaknesses    []string         `json:"weaknesses"`
	Recommended   []string         `json:"study_recommendations"`
}

// QuestionResult holds per-question data for export.
type QuestionResult struct {
	Type            QuestionType `json:"type"`
	Text            string       `json:"text"`
	Options         []string     `json:"options,omitempty"`
	ReferenceAnswer string       `json:"reference_answer"`
	Answer          string       `json:"answer"`
	Score           *float64     `json:"score,omitempty"`
	Feedback        string       `json:"feedback,omitempty"`
}
