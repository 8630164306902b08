// Package flow models UI navigation as a finite state machine. Next is a
// pure function of (state, event); Machine pairs the current state with the
// data the pages need.
package flow

import (
	"errors"
	"fmt"

	"github.com/pavelanni/skillmeter/internal/model"
)

// State is a UI screen.
type State string

const (
	LoggedOut      State = "logged_out"
	Dashboard      State = "dashboard"
	SkillSelect    State = "skill_select"
	Quiz           State = "quiz"
	Results        State = "results"
	History        State = "history"
	ReportDownload State = "report_download"
)

// Event triggers a transition. Concrete events carry their payload.
type Event interface {
	event()
}

// LoggedIn follows a successful login.
type LoggedIn struct {
	UserID model.UserID
	Email  string
}

// LoggedOutEvent clears the session.
type LoggedOutEvent struct{}

// Navigate moves between the menu pages: Dashboard, SkillSelect, History.
type Navigate struct {
	To State
}

// QuizReady carries a freshly generated question set.
type QuizReady struct {
	Skill     string
	Questions []model.Question
}

// QuizCancelled abandons the quiz in progress.
type QuizCancelled struct{}

// QuizEvaluated carries the graded attempt.
type QuizEvaluated struct {
	Answers    []string
	Evaluation model.Evaluation
}

// ReportRequested asks for the PDF of the current results.
type ReportRequested struct{}

// BackToResults returns from the report page.
type BackToResults struct{}

func (LoggedIn) event()        {}
func (LoggedOutEvent) event()  {}
func (Navigate) event()        {}
func (QuizReady) event()       {}
func (QuizCancelled) event()   {}
func (QuizEvaluated) event()   {}
func (ReportRequested) event() {}
func (BackToResults) event()   {}

// ErrInvalidTransition is returned for events the current state does not
// accept.
var ErrInvalidTransition = errors.New("invalid transition")

func invalid(s State, e Event) error {
	return fmt.Errorf("%w: %T in %s", ErrInvalidTransition, e, s)
}

var menu = map[State]bool{Dashboard: true, SkillSelect: true, History: true}

// Next returns the state that follows s on e. It does not check guards
// that depend on Context; Machine.Apply does.
func Next(s State, e Event) (State, error) {
	if _, ok := e.(LoggedOutEvent); ok {
		return LoggedOut, nil
	}
	if s == LoggedOut {
		if _, ok := e.(LoggedIn); ok {
			return Dashboard, nil
		}
		return s, invalid(s, e)
	}

	switch ev := e.(type) {
	case Navigate:
		if !menu[ev.To] {
			return s, invalid(s, e)
		}
		// A quiz in progress is left only by cancelling or submitting.
		if s == Quiz {
			return s, invalid(s, e)
		}
		return ev.To, nil
	case QuizReady:
		if s == SkillSelect {
			return Quiz, nil
		}
	case QuizCancelled:
		if s == Quiz {
			return SkillSelect, nil
		}
	case QuizEvaluated:
		if s == Quiz {
			return Results, nil
		}
	case ReportRequested:
		if s == Results {
			return ReportDownload, nil
		}
	case BackToResults:
		if s == ReportDownload {
			return Results, nil
		}
	}
	return s, invalid(s, e)
}

// Context is the data carried across pages for one browser session.
type Context struct {
	UserID     model.UserID
	Email      string
	Skill      string
	Questions  []model.Question
	Answers    []string
	Evaluation *model.Evaluation
}

// Machine is the state of one browser session. It is not safe for
// concurrent use.
type Machine struct {
	state State
	ctx   Context
}

// NewMachine returns a machine in the LoggedOut state.
func NewMachine() *Machine {
	return &Machine{state: LoggedOut}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Context returns a copy of the current context.
func (m *Machine) Context() Context { return m.ctx }

// Apply performs the transition for e, checks its guards and updates the
// context with e's payload. On error nothing changes.
func (m *Machine) Apply(e Event) error {
	next, err := Next(m.state, e)
	if err != nil {
		return err
	}

	c := m.ctx
	switch ev := e.(type) {
	case LoggedIn:
		if ev.UserID == "" {
			return &model.ValidationError{Field: "user_id", Reason: model.ReasonRequired}
		}
		c = Context{UserID: ev.UserID, Email: ev.Email}
	case LoggedOutEvent:
		c = Context{}
	case QuizReady:
		if len(ev.Questions) == 0 {
			return &model.ValidationError{Field: "questions", Reason: model.ReasonRequired}
		}
		c.Skill = ev.Skill
		c.Questions = ev.Questions
		c.Answers = nil
		c.Evaluation = nil
	case QuizCancelled:
		c.Questions = nil
		c.Answers = nil
		c.Evaluation = nil
	case QuizEvaluated:
		if len(ev.Answers) != len(c.Questions) {
			return &model.ValidationError{Field: "answers", Reason: model.ReasonLengthMismatch}
		}
		evaluation := ev.Evaluation
		c.Answers = ev.Answers
		c.Evaluation = &evaluation
	}

	if (next == Results || next == ReportDownload) && c.Evaluation == nil {
		return fmt.Errorf("%w: %s requires an evaluation", ErrInvalidTransition, next)
	}
	if next == Quiz && len(c.Questions) == 0 {
		return fmt.Errorf("%w: %s requires questions", ErrInvalidTransition, next)
	}

	m.state = next
	m.ctx = c
	return nil
}
