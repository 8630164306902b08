package i18n

import "net/http"

// Middleware picks each request's catalogue from its Accept-Language
// header and falls back to defaultLang. The chosen tag is echoed in
// Content-Language.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l, ok := cat.negotiate(r.Header.Get("Accept-Language"))
			if !ok {
				l = cat.locale(defaultLang)
			}
			w.Header().Set("Content-Language", l.lang)
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), l.lang)))
		})
	}
}
