package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/skillmeter/internal/model"
)

func TestSessionDocBSONRoundTrip(t *testing.T) {
	uid := primitive.NewObjectID()
	in := testSession(model.UserID(uid.Hex()), "Go", 80)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	doc := newSessionDoc(in, at)
	doc.ID = primitive.NewObjectID()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("bson.Marshal: %v", err)
	}

	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("bson.Unmarshal: %v", err)
	}
	for _, key := range []string{"user_id", "skill_name", "questions", "user_answers", "evaluation", "score", "created_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("document lacks %q", key)
		}
	}

	var back sessionDoc
	if err := bson.Unmarshal(raw, &back); err != nil {
		t.Fatalf("bson.Unmarshal: %v", err)
	}
	qs := back.toSession()
	if qs.ID != model.SessionID(doc.ID.Hex()) || qs.UserID != in.UserID {
		t.Errorf("ids = %q/%q", qs.ID, qs.UserID)
	}
	if len(qs.Questions) != 2 || qs.Questions[0].Options[0] != "go" {
		t.Errorf("questions = %+v", qs.Questions)
	}
	if qs.Evaluation.Breakdown[1].Feedback != "Partly right" {
		t.Errorf("evaluation = %+v", qs.Evaluation)
	}
	if !qs.CreatedAt.Equal(at) {
		t.Errorf("created_at = %v", qs.CreatedAt)
	}
}

func TestObjectIDMalformed(t *testing.T) {
	if _, err := objectID("42"); !model.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// TestMongoStore runs against a live server when SKILLMETER_TEST_MONGO_URI
// is set.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("SKILLMETER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SKILLMETER_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	dbName := "skillmeter_test_" + primitive.NewObjectID().Hex()
	s, err := NewMongo(ctx, uri, dbName, WithHashCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("NewMongo: %v", err)
	}
	t.Cleanup(func() {
		_ = s.client.Database(dbName).Drop(context.Background())
		s.Close()
	})

	uid := createTestUser(t, s, "ann@example.com")
	if _, err := s.CreateUser(ctx, "ann@example.com", "secret123"); !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := s.VerifyUser(ctx, "ann@example.com", "nope-nope"); !errors.Is(err, model.ErrAuthFailure) {
		t.Errorf("expected ErrAuthFailure, got %v", err)
	}

	for _, score := range []float64{60, 80, 100} {
		if _, err := s.SaveSession(ctx, testSession(uid, "Go", score)); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}
	sessions, err := s.GetUserSessions(ctx, uid)
	if err != nil {
		t.Fatalf("GetUserSessions: %v", err)
	}
	if len(sessions) != 3 || sessions[0].Score != 100 {
		t.Errorf("sessions = %+v", sessions)
	}
	latest, err := s.GetLatestSession(ctx, uid)
	if err != nil || latest == nil || latest.Score != 100 {
		t.Errorf("latest = %+v, %v", latest, err)
	}
}
