package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pavelanni/skillmeter/internal/model"
)

// SQLiteStore keeps users and sessions in a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	opts settings
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (creating if needed) the database at dbPath and applies
// the schema. ":memory:" gives a private in-memory database.
func NewSQLite(dbPath string, opts ...Option) (*SQLiteStore, error) {
	o := defaultSettings()
	for _, opt := range opts {
		opt(&o)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if dbPath != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLiteStore{db: db, opts: o}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		skill_name TEXT NOT NULL,
		questions_json TEXT NOT NULL,
		answers_json TEXT NOT NULL,
		evaluation_json TEXT NOT NULL,
		score REAL NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_created
		ON sessions (user_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// SaveSession records a finished quiz attempt.
func (s *SQLiteStore) SaveSession(ctx context.Context, in model.NewSession) (model.SessionID, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	uid, err := in.UserID.Int64()
	if err != nil {
		return "", err
	}
	questions, err := json.Marshal(in.Questions)
	if err != nil {
		return "", fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(in.Answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	evaluation, err := json.Marshal(in.Evaluation)
	if err != nil {
		return "", fmt.Errorf("marshal evaluation: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, skill_name, questions_json, answers_json, evaluation_json, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uid, in.Skill, string(questions), string(answers), string(evaluation), in.Score, s.opts.now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return model.SessionID(strconv.FormatInt(id, 10)), nil
}

const sessionColumns = `id, user_id, skill_name, questions_json, answers_json, evaluation_json, score, created_at`

// GetUserSessions returns the user's sessions, newest first.
func (s *SQLiteStore) GetUserSessions(ctx context.Context, id model.UserID) ([]model.QuizSession, error) {
	uid, err := id.Int64()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at DESC, id DESC`, uid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.QuizSession
	for rows.Next() {
		qs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, qs)
	}
	return sessions, rows.Err()
}

// GetLatestSession returns the user's newest session, or nil.
func (s *SQLiteStore) GetLatestSession(ctx context.Context, id model.UserID) (*model.QuizSession, error) {
	uid, err := id.Int64()
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, uid,
	)
	qs, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &qs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (model.QuizSession, error) {
	var (
		qs                              model.QuizSession
		id, uid                         int64
		questions, answers, evaluation string
	)
	if err := r.Scan(&id, &uid, &qs.Skill, &questions, &answers, &evaluation, &qs.Score, &qs.CreatedAt); err != nil {
		return qs, err
	}
	qs.ID = model.SessionID(strconv.FormatInt(id, 10))
	qs.UserID = model.UserID(strconv.FormatInt(uid, 10))
	if err := json.Unmarshal([]byte(questions), &qs.Questions); err != nil {
		return qs, fmt.Errorf("session %d questions: %w", id, err)
	}
	if err := json.Unmarshal([]byte(answers), &qs.Answers); err != nil {
		return qs, fmt.Errorf("session %d answers: %w", id, err)
	}
	if err := json.Unmarshal([]byte(evaluation), &qs.Evaluation); err != nil {
		return qs, fmt.Errorf("session %d evaluation: %w", id, err)
	}
	return qs, nil
}
