package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLanguage(context.Background(), lang)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "Skill Meter" {
		t.Errorf("T(AppTitle) = %q, want 'Skill Meter'", got)
	}
	if got := T(ctx, "Weaknesses"); got != "Areas for Improvement" {
		t.Errorf("T(Weaknesses) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	if got := T(ctx, "AppTitle"); got != "Измеритель навыков" {
		t.Errorf("T(AppTitle) = %q, want 'Измеритель навыков'", got)
	}
	if got := T(ctx, "Logout"); got != "Выйти" {
		t.Errorf("T(Logout) = %q, want 'Выйти'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuestionsCount", 1); got != "1 question" {
		t.Errorf("Tp(QuestionsCount, 1) = %q", got)
	}
	if got := Tp(ctx, "QuestionsCount", 5); got != "5 questions" {
		t.Errorf("Tp(QuestionsCount, 5) = %q", got)
	}

	ru := initLang(t, "ru")
	tests := map[int]string{1: "1 вопрос", 3: "3 вопроса", 5: "5 вопросов", 21: "21 вопрос"}
	for n, want := range tests {
		if got := Tp(ru, "QuestionsCount", n); got != want {
			t.Errorf("Tp(ru, QuestionsCount, %d) = %q, want %q", n, got, want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Td(ctx, "QuestionN", map[string]any{"N": 3}); got != "Question 3" {
		t.Errorf("Td(QuestionN, N=3) = %q, want 'Question 3'", got)
	}
	if got := Td(ctx, "QuizTitle", map[string]any{"Skill": "Go"}); got != "Quiz: Go" {
		t.Errorf("Td(QuizTitle) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestLanguages(t *testing.T) {
	initLang(t, "en")

	langs := map[string]bool{}
	for _, l := range Languages() {
		langs[l] = true
	}
	if !langs["en"] || !langs["ru"] {
		t.Errorf("Languages() = %v, want en and ru", Languages())
	}
}

func TestMiddleware(t *testing.T) {
	initLang(t, "en")

	tests := []struct {
		name        string
		defaultLang string
		accept      string
		wantLang    string
		wantLogin   string
	}{
		{"default without header", "ru", "", "ru", "Войти"},
		{"header picks catalogue", "en", "ru-RU,ru;q=0.9,en;q=0.8", "ru", "Войти"},
		{"regional english", "ru", "en-GB", "en", "Log in"},
		{"unknown language falls back", "ru", "de-DE,fr;q=0.5", "ru", "Войти"},
		{"malformed header falls back", "en", ";;;", "en", "Log in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var login, lang string
			h := Middleware(tt.defaultLang)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				login = T(r.Context(), "Login")
				lang = Lang(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if login != tt.wantLogin {
				t.Errorf("T(Login) = %q, want %q", login, tt.wantLogin)
			}
			if lang != tt.wantLang {
				t.Errorf("Lang = %q, want %q", lang, tt.wantLang)
			}
			if got := rec.Header().Get("Content-Language"); got != tt.wantLang {
				t.Errorf("Content-Language = %q, want %q", got, tt.wantLang)
			}
		})
	}
}

func TestContextWithoutLanguage(t *testing.T) {
	initLang(t, "ru")
	if got := T(context.Background(), "Logout"); got != "Выйти" {
		t.Errorf("T(Logout) without a request language = %q", got)
	}
}
