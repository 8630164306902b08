// Package report assembles the PDF learning report for one quiz session.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/pavelanni/skillmeter/internal/chart"
	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/progress"
)

// Section names one block of the report layout.
type Section string

const (
	SectionTitle           Section = "title"
	SectionScore           Section = "score"
	SectionProgression     Section = "progression"
	SectionQuestionChart   Section = "question_chart"
	SectionBreakdown       Section = "breakdown"
	SectionStrengths       Section = "strengths"
	SectionWeaknesses      Section = "weaknesses"
	SectionRecommendations Section = "recommendations"
)

// MaxFeedbackRunes bounds feedback shown in the breakdown table.
const MaxFeedbackRunes = 100

// Input is everything one report is built from. SkillSessions may be in
// any order; they are plotted ascending by time.
type Input struct {
	Email         string
	Skill         string
	Evaluation    *model.Evaluation
	SkillSessions []model.QuizSession
}

// Builder renders reports.
type Builder struct {
	now func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the time stamped on reports.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Plan returns the sections Build will lay out for in, in order.
func (b *Builder) Plan(in Input) []Section {
	plan := []Section{SectionTitle}
	if in.Evaluation == nil {
		return plan
	}
	plan = append(plan, SectionScore)
	if len(in.SkillSessions) > 1 {
		plan = append(plan, SectionProgression)
	}
	ev := in.Evaluation
	if len(ev.Breakdown) > 0 {
		plan = append(plan, SectionQuestionChart)
	}
	plan = append(plan, SectionBreakdown)
	if len(ev.Strengths) > 0 {
		plan = append(plan, SectionStrengths)
	}
	if len(ev.Weaknesses) > 0 {
		plan = append(plan, SectionWeaknesses)
	}
	if len(ev.Recommendations) > 0 {
		plan = append(plan, SectionRecommendations)
	}
	return plan
}

// Build renders the report. Every failure is a *model.ReportBuildError and
// no partial document is returned.
func (b *Builder) Build(in Input) ([]byte, error) {
	if in.Evaluation == nil {
		return nil, &model.ReportBuildError{Stage: "input", Err: errors.New("no evaluation to report")}
	}

	d := newDocument(in, b.now())
	for _, s := range b.Plan(in) {
		if err := d.render(s); err != nil {
			return nil, &model.ReportBuildError{Stage: string(s), Err: err}
		}
	}

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, &model.ReportBuildError{Stage: "output", Err: err}
	}
	return buf.Bytes(), nil
}

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}_.-]+`)

// Filename returns the attachment name for a report on skill built at t.
func Filename(skill string, t time.Time) string {
	name := unsafeFilename.ReplaceAllString(skill, "_")
	if name == "" {
		name = "skill"
	}
	return fmt.Sprintf("Learning_Report_%s_%s.pdf", name, t.Format("20060102"))
}

// TruncateFeedback shortens s to MaxFeedbackRunes characters plus "...".
func TruncateFeedback(s string) string {
	if utf8.RuneCountInString(s) <= MaxFeedbackRunes {
		return s
	}
	return string([]rune(s)[:MaxFeedbackRunes]) + "..."
}

const (
	fontFamily = "go"
	bodySize   = 11
	lineHeight = 6
	imageWidth = 170
)

type rgb struct{ r, g, b int }

var (
	titleColor   = rgb{31, 119, 180}
	headingColor = rgb{44, 62, 80}
	passColor    = rgb{39, 174, 96}
	failColor    = rgb{231, 76, 60}
	headerFill   = rgb{52, 73, 94}
	rowFill      = rgb{245, 245, 220}
	black        = rgb{0, 0, 0}
	white        = rgb{255, 255, 255}
)

type document struct {
	pdf *fpdf.Fpdf
	in  Input
	at  time.Time
}

func newDocument(in Input, at time.Time) *document {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	pdf.SetTitle("Learning Report: "+in.Skill, true)
	pdf.SetCreationDate(at)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return &document{pdf: pdf, in: in, at: at}
}

func (d *document) color(c rgb) { d.pdf.SetTextColor(c.r, c.g, c.b) }

func (d *document) heading(text string) {
	d.pdf.SetFont(fontFamily, "B", 16)
	d.color(headingColor)
	d.pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
	d.color(black)
	d.pdf.SetFont(fontFamily, "", bodySize)
}

func (d *document) render(s Section) error {
	ev := d.in.Evaluation
	switch s {
	case SectionTitle:
		d.pdf.SetFont(fontFamily, "B", 22)
		d.color(titleColor)
		d.pdf.CellFormat(0, 14, "AI Learning & Skill Mastery Report", "", 1, "C", false, 0, "")
		d.pdf.Ln(4)
		d.color(black)
		d.pdf.SetFont(fontFamily, "", bodySize)
		d.pdf.CellFormat(0, lineHeight, "User: "+pdfText(d.in.Email), "", 1, "L", false, 0, "")
		d.pdf.CellFormat(0, lineHeight, "Skill: "+pdfText(d.in.Skill), "", 1, "L", false, 0, "")
		d.pdf.CellFormat(0, lineHeight, "Date: "+d.at.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
		d.pdf.Ln(6)
	case SectionScore:
		d.pdf.SetFont(fontFamily, "B", 16)
		d.color(headingColor)
		label := "Overall Score: "
		d.pdf.CellFormat(d.pdf.GetStringWidth(label)+2, 10, label, "", 0, "L", false, 0, "")
		if progress.BandOf(ev.OverallScore) == progress.BandStrong {
			d.color(passColor)
		} else {
			d.color(failColor)
		}
		d.pdf.CellFormat(0, 10, fmt.Sprintf("%.1f%%", ev.OverallScore), "", 1, "L", false, 0, "")
		d.color(black)
		d.pdf.Ln(4)
	case SectionProgression:
		png, err := chart.ScoreProgression(progress.Series(d.in.SkillSessions), chart.Options{})
		if err != nil {
			return err
		}
		d.heading("Score Progression Over Time")
		d.image(png)
	case SectionQuestionChart:
		png, err := chart.QuestionScores(ev.Breakdown, chart.Options{})
		if err != nil {
			return err
		}
		d.heading("Question-wise Performance")
		d.image(png)
	case SectionBreakdown:
		d.heading("Detailed Question-wise Breakdown")
		d.breakdown(ev.Breakdown)
	case SectionStrengths:
		d.bullets("Strengths", ev.Strengths)
	case SectionWeaknesses:
		d.bullets("Areas for Improvement", ev.Weaknesses)
	case SectionRecommendations:
		d.bullets("Study Recommendations", ev.Recommendations)
	}
	return d.pdf.Error()
}

// image embeds png from memory under a name unique to this call.
func (d *document) image(png []byte) {
	name := "chart-" + uuid.NewString() + ".png"
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	left, _, _, _ := d.pdf.GetMargins()
	d.pdf.ImageOptions(name, left, -1, imageWidth, 0, true, opts, 0, "")
	d.pdf.Ln(4)
}

// breakdown draws the per-question table; with no entries only the
// section heading remains.
func (d *document) breakdown(entries []model.BreakdownEntry) {
	if len(entries) == 0 {
		d.pdf.Ln(4)
		return
	}
	widths := []float64{25, 30, 0}
	left, _, right, bottom := d.pdf.GetMargins()
	pageW, pageH := d.pdf.GetPageSize()
	widths[2] = pageW - left - right - widths[0] - widths[1]

	header := func() {
		d.pdf.SetFont(fontFamily, "B", 12)
		d.pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
		d.color(white)
		for i, h := range []string{"Question", "Score", "Feedback"} {
			d.pdf.CellFormat(widths[i], 9, h, "1", 0, "L", true, 0, "")
		}
		d.pdf.Ln(-1)
		d.color(black)
		d.pdf.SetFont(fontFamily, "", bodySize-1)
		d.pdf.SetFillColor(rowFill.r, rowFill.g, rowFill.b)
	}
	header()

	for _, e := range entries {
		feedback := pdfText(TruncateFeedback(e.Feedback))
		lines := d.pdf.SplitText(feedback, widths[2])
		if len(lines) == 0 {
			lines = []string{""}
		}
		h := float64(len(lines)) * lineHeight

		if d.pdf.GetY()+h > pageH-bottom-15 {
			d.pdf.AddPage()
			header()
		}

		x, y := d.pdf.GetXY()
		d.pdf.CellFormat(widths[0], h, fmt.Sprintf("Q%d", e.QuestionIndex+1), "1", 0, "LT", true, 0, "")
		d.pdf.CellFormat(widths[1], h, fmt.Sprintf("%.1f%%", e.Score), "1", 0, "LT", true, 0, "")
		d.pdf.MultiCell(widths[2], lineHeight, feedback, "1", "L", true)
		d.pdf.SetXY(x, y+h)
	}
	d.pdf.Ln(6)
}

func (d *document) bullets(title string, items []string) {
	d.heading(title)
	for _, it := range items {
		d.pdf.MultiCell(0, lineHeight, "• "+pdfText(it), "", "L", false)
	}
	d.pdf.Ln(4)
}

// pdfText drops characters outside the Basic Multilingual Plane, which the
// embedded font tables cannot index.
func pdfText(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r > 0xFFFF {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
