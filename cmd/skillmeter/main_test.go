package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/store"
)

func TestNormalizeBasePath(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"/":       "",
		"sm":      "/sm",
		"/sm/":    "/sm",
		" /a/b/ ": "/a/b",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeBasePath(in), "input %q", in)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSkillsCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.json")

	out, err := run(t, "skills", "add", "--skills-file", path, "Rust", "Go")
	require.NoError(t, err)
	assert.Contains(t, out, "Rust: added")
	assert.Contains(t, out, "Go: already present")

	out, err = run(t, "skills", "list", "--skills-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Python\n")
	assert.Contains(t, out, "Rust\n")
}

func seedHistory(t *testing.T, dbPath string) {
	t.Helper()
	s, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	id, err := s.CreateUser(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	_, err = s.SaveSession(ctx, model.NewSession{
		UserID:    id,
		Skill:     "Go",
		Questions: []model.Question{{Type: model.QuestionShortAnswer, Text: "What does defer do?", ReferenceAnswer: "Delays a call"}},
		Answers:   []string{"Runs later"},
		Evaluation: model.Evaluation{
			OverallScore: 75,
			Breakdown:    []model.BreakdownEntry{{QuestionIndex: 0, Score: 75, Feedback: "Mostly right."}},
			Strengths:    []string{"Basics"},
		},
		Score: 75,
	})
	require.NoError(t, err)
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "skillmeter.db")
	seedHistory(t, dbPath)

	outPath := filepath.Join(dir, "export.json")
	_, err := run(t, "export", "--db", dbPath, "--email", "ann@example.com", "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var exp model.HistoryExport
	require.NoError(t, json.Unmarshal(data, &exp))
	assert.Equal(t, "ann@example.com", exp.Email)
	require.Len(t, exp.Sessions, 1)
	assert.Equal(t, "Go", exp.Sessions[0].Skill)

	_, err = run(t, "export", "--db", dbPath, "--email", "bob@example.com", "-o", outPath)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "skillmeter.db")
	seedHistory(t, dbPath)

	outPath := filepath.Join(dir, "report.pdf")
	_, err := run(t, "report", "--db", dbPath, "--email", "ann@example.com", "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, err = run(t, "report", "--db", dbPath, "--email", "ann@example.com", "--skill", "SQL", "-o", outPath)
	assert.ErrorIs(t, err, errNoSessions)
}
