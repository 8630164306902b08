package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/skillmeter/internal/model"
)

//go:embed templates/*.txt
var files embed.FS

var (
	userAnswerRegex = regexp.MustCompile(`(?i)</?\s*user-answer\b[^>]*>`)
	questionRegex   = regexp.MustCompile(`(?i)</?\s*question\b[^>]*>`)
)

const maxAnswerRunes = 10000

// Variant selects how strictly answers are graded.
type Variant string

const (
	VariantStrict   Variant = "strict"
	VariantStandard Variant = "standard"
	VariantLenient  Variant = "lenient"
)

var validVariants = map[Variant]bool{
	VariantStrict:   true,
	VariantStandard: true,
	VariantLenient:  true,
}

// IsValidVariant checks if a grading variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

var (
	loadOnce     sync.Once
	loadErr      error
	generateTmpl *template.Template
	evalTmpls    map[Variant]*template.Template
)

// GenerateData holds template data for the question generation prompt.
type GenerateData struct {
	Skill    string
	Count    int
	Language string
}

// EvalItem is one question with the user's answer.
type EvalItem struct {
	Index    int
	Type     model.QuestionType
	Question string
	Options  []string
	Answer   string
}

// EvalData holds template data for the evaluation prompt.
type EvalData struct {
	Skill    string
	Items    []EvalItem
	Language string
}

func load() error {
	loadOnce.Do(func() {
		var err error
		generateTmpl, err = parse("generate.txt")
		if err != nil {
			loadErr = err
			return
		}
		evalTmpls = make(map[Variant]*template.Template, len(validVariants))
		for v := range validVariants {
			t, err := parse("evaluate_" + string(v) + ".txt")
			if err != nil {
				loadErr = err
				return
			}
			evalTmpls[v] = t
		}
	})
	return loadErr
}

func parse(name string) (*template.Template, error) {
	content, err := files.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	t, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return t, nil
}

// BuildGeneratePrompt builds the prompt asking for count questions on skill.
func BuildGeneratePrompt(skill string, count int, language string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err := generateTmpl.Execute(&buf, GenerateData{
		Skill:    skill,
		Count:    count,
		Language: languageName(language),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildEvalPrompt builds the grading prompt for a completed quiz.
func BuildEvalPrompt(variant Variant, skill string, questions []model.Question, answers []string, language string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	if variant == "" {
		variant = VariantStandard
	}
	tmpl, ok := evalTmpls[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	if len(questions) != len(answers) {
		return "", fmt.Errorf("%d questions but %d answers", len(questions), len(answers))
	}

	items := make([]EvalItem, len(questions))
	for i, q := range questions {
		items[i] = EvalItem{
			Index:    i,
			Type:     q.Type,
			Question: q.Text,
			Options:  q.Options,
			Answer:   sanitizeAnswer(answers[i]),
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, EvalData{Skill: skill, Items: items, Language: languageName(language)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func languageName(tag string) string {
	switch strings.ToLower(tag) {
	case "ru":
		return "Russian"
	default:
		return "English"
	}
}

func sanitizeAnswer(answer string) string {
	answer = userAnswerRegex.ReplaceAllString(answer, "")
	answer = questionRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
