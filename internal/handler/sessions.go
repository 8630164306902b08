package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pavelanni/skillmeter/internal/flow"
	"github.com/pavelanni/skillmeter/internal/model"
)

const sessionTTL = 24 * time.Hour

// webSession is the server-side state of one signed-in browser. mu is held
// for the whole of a request so pages never see a half-applied transition.
type webSession struct {
	mu      sync.Mutex
	machine *flow.Machine
	expires time.Time

	// report holds the last built PDF while in the ReportDownload state.
	report     []byte
	reportName string
}

// sessionRegistry maps session cookie tokens to browser sessions. Sessions
// live in memory and expire after sessionTTL without use.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*webSession
	now      func() time.Time
}

func newSessionRegistry(now func() time.Time) *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*webSession), now: now}
}

func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// create starts a session for a user who just logged in.
func (s *sessionRegistry) create(u *model.User) (string, error) {
	m := flow.NewMachine()
	if err := m.Apply(flow.LoggedIn{UserID: u.ID, Email: u.Email}); err != nil {
		return "", err
	}
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.sessions[token] = &webSession{machine: m, expires: s.now().Add(sessionTTL)}
	return token, nil
}

// get returns the live session for token and extends its lifetime.
func (s *sessionRegistry) get(token string) *webSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.sessions[token]
	if !ok {
		return nil
	}
	now := s.now()
	if now.After(ws.expires) {
		delete(s.sessions, token)
		return nil
	}
	ws.expires = now.Add(sessionTTL)
	return ws
}

func (s *sessionRegistry) delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *sessionRegistry) pruneLocked() {
	now := s.now()
	for token, ws := range s.sessions {
		if now.After(ws.expires) {
			delete(s.sessions, token)
		}
	}
}

type webSessionCtxKey struct{}

func contextWithWebSession(ctx context.Context, ws *webSession) context.Context {
	return context.WithValue(ctx, webSessionCtxKey{}, ws)
}

func webSessionFromContext(ctx context.Context) *webSession {
	ws, _ := ctx.Value(webSessionCtxKey{}).(*webSession)
	return ws
}
