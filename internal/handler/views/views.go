// Package views renders the HTML pages. Each page is an html/template file
// executed inside the shared layout and exposed as a templ.Component.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/skillmeter/internal/i18n"
	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/progress"
)

//go:embed templates/*.html
var files embed.FS

var pages = map[string]*template.Template{}

// placeholders for parsing; render replaces them with request-bound funcs.
var baseFuncs = template.FuncMap{
	"T":     func(string) string { return "" },
	"Td":    func(string, ...any) string { return "" },
	"Tp":    func(string, int) string { return "" },
	"lang":  func() string { return "" },
	"path":  func(string) string { return "" },
	"csrf":  func() string { return "" },
	"score": formatScore,
	"band":  band,
	"date":  formatDate,
	"add1":  func(i int) int { return i + 1 },
}

func init() {
	for _, name := range []string{"login", "register", "dashboard", "skills", "quiz", "results", "history", "report", "error"} {
		pages[name] = template.Must(template.New(name).Funcs(baseFuncs).
			ParseFS(files, "templates/layout.html", "templates/"+name+".html"))
	}
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func band(v float64) string {
	return string(progress.BandOf(v))
}

func requestFuncs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"T": func(id string) string { return appI18n.T(ctx, id) },
		"Td": func(id string, kv ...any) string {
			data := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				if k, ok := kv[i].(string); ok {
					data[k] = kv[i+1]
				}
			}
			return appI18n.Td(ctx, id, data)
		},
		"Tp":   func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"lang": func() string { return appI18n.Lang(ctx) },
		"path": func(p string) string { return model.BasePathFromContext(ctx) + p },
		"csrf": func() string { return model.CSRFTokenFromContext(ctx) },
	}
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := pages[name].Clone()
		if err != nil {
			return err
		}
		return t.Funcs(requestFuncs(ctx)).ExecuteTemplate(w, "layout", data)
	})
}

// Flash is a one-shot message shown above the page content.
type Flash struct {
	Kind    string // "error" or "success"
	Message string // translation ID
}

// ErrorFlash returns an error message.
func ErrorFlash(id string) *Flash { return &Flash{Kind: "error", Message: id} }

// SuccessFlash returns a success message.
func SuccessFlash(id string) *Flash { return &Flash{Kind: "success", Message: id} }

// Page carries what every page shows: the signed-in user and a flash.
type Page struct {
	Email string
	Flash *Flash
}

// AuthData is shown on the login and register pages.
type AuthData struct {
	Page
	EmailValue string
}

// DashboardData is the dashboard page model.
type DashboardData struct {
	Page
	Summary progress.Summary
	Recent  []model.QuizSession
}

// SkillsData is the skill selection page model.
type SkillsData struct {
	Page
	Skills   []string
	Selected string
}

// QuizData is the quiz page model.
type QuizData struct {
	Page
	Skill     string
	Questions []model.Question
	Answers   []string
}

// Answer returns the previously entered answer for question i.
func (d QuizData) Answer(i int) string {
	if i < len(d.Answers) {
		return d.Answers[i]
	}
	return ""
}

// ResultItem pairs a question with the user's answer and its grade.
type ResultItem struct {
	Question model.Question
	Answer   string
	Graded   bool
	Score    float64
	Feedback string
}

// ResultsData is the results page model.
type ResultsData struct {
	Page
	Skill      string
	Evaluation model.Evaluation
	Items      []ResultItem
}

// HistoryData is the history page model.
type HistoryData struct {
	Page
	Skills    []string
	Skill     string
	Sessions  []model.QuizSession
	ShowChart bool
}

// ReportData is the report download page model.
type ReportData struct {
	Page
	Skill    string
	Filename string
}

// ErrorData is the generic error page model.
type ErrorData struct {
	Page
}

func LoginPage(d AuthData) templ.Component { return render("login", d) }
func RegisterPage(d AuthData) templ.Component { return render("register", d) }
func DashboardPage(d DashboardData) templ.Component { return render("dashboard", d) }
func SkillsPage(d SkillsData) templ.Component { return render("skills", d) }
func QuizPage(d QuizData) templ.Component { return render("quiz", d) }
func ResultsPage(d ResultsData) templ.Component { return render("results", d) }
func HistoryPage(d HistoryData) templ.Component { return render("history", d) }
func ReportPage(d ReportData) templ.Component { return render("report", d) }
func ErrorPage(d ErrorData) templ.Component { return render("error", d) }
