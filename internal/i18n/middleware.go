package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// Middleware injects a localizer into every request context and answers
// with the negotiated Content-Language. The "lang" query parameter wins
// over Accept-Language; fallbackLang applies when neither matches a locale.
func Middleware(fallbackLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prefs := []string{r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), fallbackLang}
			w.Header().Set("Content-Language", negotiate(prefs...))
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), NewLocalizer(prefs...))))
		})
	}
}

// negotiate picks the loaded locale serving prefs, reduced to its base
// language.
func negotiate(prefs ...string) string {
	m := language.NewMatcher(bundle.LanguageTags())
	tag, _ := language.MatchStrings(m, prefs...)
	base, _ := tag.Base()
	return base.String()
}
