// Package handler serves the skill assessment web UI. Page navigation is
// driven by a flow.Machine kept per signed-in browser.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/skillmeter/internal/auth"
	"github.com/pavelanni/skillmeter/internal/chart"
	"github.com/pavelanni/skillmeter/internal/flow"
	"github.com/pavelanni/skillmeter/internal/handler/views"
	appI18n "github.com/pavelanni/skillmeter/internal/i18n"
	"github.com/pavelanni/skillmeter/internal/metrics"
	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/progress"
	"github.com/pavelanni/skillmeter/internal/report"
	"github.com/pavelanni/skillmeter/internal/skills"
	"github.com/pavelanni/skillmeter/internal/store"
)

// QuestionSource produces the questions for one quiz.
type QuestionSource interface {
	Generate(ctx context.Context, skill string, count int) ([]model.Question, error)
}

// Evaluator grades a completed quiz.
type Evaluator interface {
	Evaluate(ctx context.Context, skill string, questions []model.Question, answers []string) (model.Evaluation, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     store.Store
	gate      *auth.Gate
	questions QuestionSource
	evaluator Evaluator
	skills    *skills.Registry
	reports   *report.Builder
	sessions  *sessionRegistry
	limiter   *attemptLimiter
	config    model.Config
	now       func() time.Time
}

// New creates a new Handler.
func New(s store.Store, q QuestionSource, e Evaluator, reg *skills.Registry, cfg model.Config) (*Handler, error) {
	if s == nil || q == nil || e == nil || reg == nil {
		return nil, errors.New("handler: store, question source, evaluator and skill registry are required")
	}
	if cfg.NumQuestions <= 0 {
		return nil, fmt.Errorf("handler: number of questions must be positive, got %d", cfg.NumQuestions)
	}
	now := time.Now
	return &Handler{
		store:     s,
		gate:      auth.New(s),
		questions: q,
		evaluator: e,
		skills:    reg,
		reports:   report.New(report.WithClock(now)),
		sessions:  newSessionRegistry(now),
		limiter:   newAttemptLimiter(cfg.LoginRate, now),
		config:    cfg,
		now:       now,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(securityHeaders)
	r.Use(h.csrfMiddleware)

	r.Get("/login", h.handleLoginPage)
	r.With(h.limitAttempts).Post("/login", h.handleLogin)
	r.Get("/register", h.handleRegisterPage)
	r.With(h.limitAttempts).Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/", h.handleDashboard)
		r.Get("/progress.png", h.handleProgressChart)
		r.Get("/skills", h.handleSkills)
		r.Post("/skills", h.handleAddSkill)
		r.Get("/quiz", h.handleQuiz)
		r.Post("/quiz", h.handleStartQuiz)
		r.Post("/quiz/submit", h.handleSubmitQuiz)
		r.Post("/quiz/cancel", h.handleCancelQuiz)
		r.Get("/results", h.handleResults)
		r.Post("/report", h.handleRequestReport)
		r.Get("/report", h.handleReport)
		r.Get("/report/download", h.handleDownloadReport)
		r.Post("/report/back", h.handleBackToResults)
		r.Get("/history", h.handleHistory)
	})
}

// BasePathMiddleware puts the configured URL prefix into the request context
// for the views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) renderStatus(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	h.renderStatus(w, r, status, views.ErrorPage(views.ErrorData{Page: page(r, views.ErrorFlash(msgID))}))
}

func page(r *http.Request, flash *views.Flash) views.Page {
	p := views.Page{Flash: flash}
	if u := model.UserFromContext(r.Context()); u != nil {
		p.Email = u.Email
	}
	return p
}

// navigate moves the session to a menu page. A quiz in progress can only
// be left by cancelling or submitting, so the user is sent back to it.
func (h *Handler) navigate(w http.ResponseWriter, r *http.Request, to flow.State) bool {
	ws := webSessionFromContext(r.Context())
	if ws.machine.State() == flow.Quiz {
		http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
		return false
	}
	if err := ws.machine.Apply(flow.Navigate{To: to}); err != nil {
		slog.Error("navigation failed", "to", to, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, auth.MsgInternal)
		return false
	}
	ws.report = nil
	return true
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) ([]model.QuizSession, bool) {
	u := model.UserFromContext(r.Context())
	history, err := h.store.GetUserSessions(r.Context(), u.ID)
	if err != nil {
		slog.Error("failed to load sessions", "user_id", u.ID, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, auth.MsgInternal)
		return nil, false
	}
	return history, true
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.navigate(w, r, flow.Dashboard) {
		return
	}
	history, ok := h.history(w, r)
	if !ok {
		return
	}
	h.renderStatus(w, r, http.StatusOK, views.DashboardPage(views.DashboardData{
		Page:    page(r, nil),
		Summary: progress.Summarize(history),
		Recent:  progress.Recent(history, progress.RecentLimit),
	}))
}

func (h *Handler) handleProgressChart(w http.ResponseWriter, r *http.Request) {
	history, ok := h.history(w, r)
	if !ok {
		return
	}
	if skill := r.URL.Query().Get("skill"); skill != "" {
		history = progress.FilterSkill(history, skill)
	}

	png, err := chart.ScoreProgression(progress.Series(history), chart.Options{
		Title: appI18n.T(r.Context(), "ScoreProgression"),
	})
	if errors.Is(err, chart.ErrNoData) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to render progress chart", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (h *Handler) renderSkills(w http.ResponseWriter, r *http.Request, status int, flash *views.Flash, selected string) {
	list, err := h.skills.List()
	if err != nil {
		slog.Error("failed to list skills", "path", h.skills.Path(), "error", err)
		h.renderError(w, r, http.StatusInternalServerError, auth.MsgInternal)
		return
	}
	h.renderStatus(w, r, status, views.SkillsPage(views.SkillsData{
		Page:     page(r, flash),
		Skills:   list,
		Selected: selected,
	}))
}

func (h *Handler) handleSkills(w http.ResponseWriter, r *http.Request) {
	if !h.navigate(w, r, flow.SkillSelect) {
		return
	}
	h.renderSkills(w, r, http.StatusOK, nil, "")
}

func (h *Handler) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	if !h.navigate(w, r, flow.SkillSelect) {
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	added, err := h.skills.Add(name)
	switch {
	case model.IsValidation(err):
		h.renderSkills(w, r, http.StatusBadRequest, views.ErrorFlash("ErrSkillNameRequired"), "")
	case err != nil:
		slog.Error("failed to add skill", "skill", name, "error", err)
		h.renderSkills(w, r, http.StatusInternalServerError, views.ErrorFlash(auth.MsgInternal), "")
	case !added:
		h.renderSkills(w, r, http.StatusConflict, views.ErrorFlash("SkillExists"), name)
	default:
		slog.Info("skill added", "skill", name)
		h.renderSkills(w, r, http.StatusOK, views.SuccessFlash("SkillAdded"), name)
	}
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	ws := webSessionFromContext(r.Context())
	if ws.machine.State() == flow.Quiz {
		http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
		return
	}
	if ws.machine.State() != flow.SkillSelect && !h.navigate(w, r, flow.SkillSelect) {
		return
	}

	skill := strings.TrimSpace(r.FormValue("skill"))
	list, err := h.skills.List()
	if err != nil {
		slog.Error("failed to list skills", "path", h.skills.Path(), "error", err)
		h.renderError(w, r, http.StatusInternalServerError, auth.MsgInternal)
		return
	}
	if skill == "" || !slices.Contains(list, skill) {
		h.renderSkills(w, r, http.StatusBadRequest, views.ErrorFlash("ErrSkillRequired"), "")
		return
	}

	questions, err := h.questions.Generate(r.Context(), skill, h.config.NumQuestions)
	metrics.CountStage("generate", err)
	if err != nil {
		slog.Error("question generation failed", "skill", skill, "error", err)
		h.renderSkills(w, r, http.StatusBadGateway, views.ErrorFlash("ErrGeneration"), skill)
		return
	}

	if err := ws.machine.Apply(flow.QuizReady{Skill: skill, Questions: questions}); err != nil {
		slog.Error("failed to start quiz", "skill", skill, "error", err)
		h.renderSkills(w, r, http.StatusBadGateway, views.ErrorFlash("ErrGeneration"), skill)
		return
	}
	slog.Info("quiz started", "skill", skill, "questions", len(questions))
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}

func (h *Handler) renderQuiz(w http.ResponseWriter, r *http.Request, status int, flash *views.Flash, answers []string) {
	c := webSessionFromContext(r.Context()).machine.Context()
	h.renderStatus(w, r, status, views.QuizPage(views.QuizData{
		Page:      page(r, flash),
		Skill:     c.Skill,
		Questions: c.Questions,
		Answers:   answers,
	}))
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	if webSessionFromContext(r.Context()).machine.State() != flow.Quiz {
		http.Redirect(w, r, h.path("/skills"), http.StatusSeeOther)
		return
	}
	h.renderQuiz(w, r, http.StatusOK, nil, nil)
}

func (h *Handler) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	ws := webSessionFromContext(r.Context())
	if ws.machine.State() != flow.Quiz {
		http.Redirect(w, r, h.path("/skills"), http.StatusSeeOther)
		return
	}
	c := ws.machine.Context()

	answers := make([]string, len(c.Questions))
	complete := true
	for i := range c.Questions {
		answers[i] = strings.TrimSpace(r.FormValue("answer-" + strconv.Itoa(i)))
		if answers[i] == "" {
			complete = false
		}
	}
	if !complete {
		h.renderQuiz(w, r, http.StatusBadRequest, views.ErrorFlash("ErrAnswerAll"), answers)
		return
	}

	ev, err := h.evaluator.Evaluate(r.Context(), c.Skill, c.Questions, answers)
	metrics.CountStage("evaluate", err)
	if err != nil {
		slog.Error("answer evaluation failed", "skill", c.Skill, "error", err)
		h.renderQuiz(w, r, http.StatusBadGateway, views.ErrorFlash("ErrEvaluation"), answers)
		return
	}

	id, err := h.store.SaveSession(r.Context(), model.NewSession{
		UserID:     c.UserID,
		Skill:      c.Skill,
		Questions:  c.Questions,
		Answers:    answers,
		Evaluation: ev,
		Score:      ev.OverallScore,
	})
	metrics.CountStage("save", err)
	if err != nil {
		slog.Error("failed to save session", "user_id", c.UserID, "skill", c.Skill, "error", err)
		h.renderQuiz(w, r, http.StatusInternalServerError, views.ErrorFlash("ErrSaveSession"), answers)
		return
	}

	if err := ws.machine.Apply(flow.QuizEvaluated{Answers: answers, Evaluation: ev}); err != nil {
		slog.Error("failed to record results", "session_id", id, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, auth.MsgInternal)
		return
	}
	slog.Info("quiz recorded", "session_id", id, "skill", c.Skill, "score", ev.OverallScore)
	http.Redirect(w, r, h.path("/results"), http.StatusSeeOther)
}

func (h *Handler) handleCancelQuiz(w http.ResponseWriter, r *http.Request) {
	ws := webSessionFromContext(r.Context())
	if ws.machine.State() == flow.Quiz {
		if err := ws.machine.Apply(flow.QuizCancelled{}); err != nil {
			slog.Error("failed to cancel quiz", "error", err)
		}
	}
	http.Redirect(w, r, h.path("/skills"), http.StatusSeeOther)
}

// resultItems pairs each question with its answer and, when the evaluation
// graded it, its score and feedback.
func resultItems(c flow.Context) []views.ResultItem {
	items := make([]views.ResultItem, len(c.Questions))
	for i, q := range c.Questions {
		items[i] = views.ResultItem{Question: q}
		if i < len(c.Answers) {
			items[i].Answer = c.Answers[i]
		}
	}
	if c.Evaluation == nil {
		return items
	}
	for _, b := range c.Evaluation.Breakdown {
		if b.QuestionIndex < 0 || b.QuestionIndex >= len(items) {
			continue
		}
		it := &items[b.QuestionIndex]
		it.Graded = true
		it.Score = b.Score
		it.Feedback = b.Feedback
	}
	return items
}

func (h *Handler) renderResults(w http.ResponseWriter, r *http.Request, status int, flash *views.Flash) {
	c := webSessionFromContext(r.Context()).machine.Context()
	h.renderStatus(w, r, status, views.ResultsPage(views.ResultsData{
		Page:       page(r, flash),
		Skill:      c.Skill,
		Evaluation: *c.Evaluation,
		Items:      resultItems(c),
	}))
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	ws := webSessionFromContext(r.Context())
	if ws.machine.State() == flow.ReportDownload {
		if err := ws.machine.Apply(flow.BackToResults{}); err != nil {
			slog.Error("failed to return to results", "error", err)
		}
		ws.report = nil
	}
	if ws.machine.State() != flow.Results {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	h.renderResults(w, r, http.StatusOK, nil)
}

func (h *Handler) handleRequestReport(w http.ResponseWriter, r *http.Request) {
	ws := webSessionFromContext(r.Context())
	switch ws.machine.State() {
	case flow.Results:
	case flow.ReportDownload:
		http.Redirect(w, r, h.path("/report"), http.StatusSeeOther)
		return
	default:
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	c := ws.machine.Context()
	history, err := h.store.GetUserSessions(r.Context(), c.UserID)
	if err != nil {
		metrics.CountStage("report", err)
		slog.Error("failed to load sessions for report", "user_id", c.UserID, "error", err)
		h.renderResults(w, r, http.StatusInternalServerError, views.ErrorFlash("ErrReport"))
		return
	}

	pdf, err := h.reports.Build(report.Input{
		Email:         c.Email,
		Skill:         c.Skill,
		Evaluation:    c.Evaluation,
		SkillSessions: progress.FilterSkill(history, c.Skill),
	})
	metrics.CountStage("report", err)
	if err != nil {
		slog.Error("report build failed", "skill", c.Skill, "error", err)
		h.renderResults(w, r, http.StatusInternalServerError, views.ErrorFlash("ErrReport"))
		return
	}

	if err := ws.machine.Apply(flow.ReportRequested{}); err != nil {
		slog.Error("failed to open report", "error", err)
		h.renderResults(w, r, http.StatusInternalServerError, views.ErrorFlash("ErrReport"))
		return
	}
	ws.report = pdf
	ws.reportName = report.Filename(c.Skill, h.now())
	http.Redirect(w, r, h.path("/report"), http.StatusSeeOther)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ws := webSessionFromContext(r.Context())
	if ws.machine.State() != flow.ReportDownload {
		http.Redirect(w, r, h.path("/results"), http.StatusSeeOther)
		return
	}
	h.renderStatus(w, r, http.StatusOK, views.ReportPage(views.ReportData{
		Page:     page(r, nil),
		Skill:    ws.machine.Context().Skill,
		Filename: ws.reportName,
	}))
}

func (h *Handler) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	ws := webSessionFromContext(r.Context())
	if ws.machine.State() != flow.ReportDownload || ws.report == nil {
		http.Redirect(w, r, h.path("/results"), http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": ws.reportName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(ws.report)))
	_, _ = w.Write(ws.report)
}

func (h *Handler) handleBackToResults(w http.ResponseWriter, r *http.Request) {
	ws := webSessionFromContext(r.Context())
	if ws.machine.State() == flow.ReportDownload {
		if err := ws.machine.Apply(flow.BackToResults{}); err != nil {
			slog.Error("failed to return to results", "error", err)
		}
		ws.report = nil
	}
	http.Redirect(w, r, h.path("/results"), http.StatusSeeOther)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !h.navigate(w, r, flow.History) {
		return
	}
	history, ok := h.history(w, r)
	if !ok {
		return
	}

	skill := r.URL.Query().Get("skill")
	sessions := history
	if skill != "" {
		sessions = progress.FilterSkill(history, skill)
	}
	h.renderStatus(w, r, http.StatusOK, views.HistoryPage(views.HistoryData{
		Page:      page(r, nil),
		Skills:    progress.Skills(history),
		Skill:     skill,
		Sessions:  sessions,
		ShowChart: len(sessions) > 0,
	}))
}
