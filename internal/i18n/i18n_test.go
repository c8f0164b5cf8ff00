package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/pavelanni/exambuilder/internal/model"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "Exam Builder" {
		t.Errorf("T(AppTitle) = %q, want 'Exam Builder'", got)
	}
	if got := T(ctx, "KindContext"); got != "Context" {
		t.Errorf("T(KindContext) = %q, want 'Context'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	if got := T(ctx, "OutlineTitle"); got != "Структура экзамена" {
		t.Errorf("T(OutlineTitle) = %q, want 'Структура экзамена'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "ItemsCount", 1); got != "1 item" {
		t.Errorf("Tp(ItemsCount, 1) = %q, want '1 item'", got)
	}
	if got := Tp(ctx, "ItemsCount", 5); got != "5 items" {
		t.Errorf("Tp(ItemsCount, 5) = %q, want '5 items'", got)
	}

	ru := initLang(t, "ru")
	tests := map[int]string{1: "1 элемент", 3: "3 элемента", 11: "11 элементов", 21: "21 элемент"}
	for n, want := range tests {
		if got := Tp(ru, "ItemsCount", n); got != want {
			t.Errorf("Tp(ru, ItemsCount, %d) = %q, want %q", n, got, want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Td(ctx, "PageN", map[string]any{"Page": 3}); got != "Page 3" {
		t.Errorf("Td(PageN, Page=3) = %q, want 'Page 3'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMiddlewareNegotiation(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "KindQuestion")
	}))

	tests := []struct {
		name, url, accept, want, contentLang string
	}{
		{"default", "/", "", "Question", "en"},
		{"header", "/", "ru-RU,ru;q=0.9", "Вопрос", "ru"},
		{"query wins", "/?lang=en", "ru", "Question", "en"},
		{"unknown falls back", "/?lang=fr", "", "Question", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if cl := rec.Header().Get("Content-Language"); cl != tt.contentLang {
				t.Errorf("Content-Language = %q, want %q", cl, tt.contentLang)
			}
		})
	}
}

func TestContextWithoutLocalizer(t *testing.T) {
	initLang(t, "ru")

	if got := T(context.Background(), "Unassigned"); got != "Без раздела" {
		t.Errorf("T(Unassigned) = %q, want the default-language text", got)
	}
	if langs := Languages(); len(langs) != 2 || langs[0] != "ru" {
		t.Errorf("Languages() = %v, want ru first", langs)
	}
}

func TestOutlineLabels(t *testing.T) {
	en := initLang(t, "en")
	tests := []struct {
		name, got, want string
	}{
		{"question kind", BoxKind(en, model.KindQuestion), "Question"},
		{"context kind", BoxKind(en, model.KindContext), "Context"},
		{"items", ItemCount(en, 2), "2 items"},
		{"page", PageLabel(en, 12), "Page 12"},
	}
	ru := initLang(t, "ru")
	tests = append(tests, struct{ name, got, want string }{"ru items", ItemCount(ru, 3), "3 элемента"})
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestCheckComplete(t *testing.T) {
	en, ru := language.English, language.Russian
	tests := []struct {
		name    string
		ids     map[language.Tag][]string
		wantErr string
	}{
		{"complete", map[language.Tag][]string{en: {"A", "B"}, ru: {"B", "A", "Extra"}}, ""},
		{"missing", map[language.Tag][]string{en: {"A", "B", "C"}, ru: {"A"}}, "locale ru is missing B, C"},
		{"no default", map[language.Tag][]string{ru: {"A"}}, "no locale file for default language en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkComplete(en, tt.ids)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("checkComplete: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("checkComplete = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestInitBadLanguage(t *testing.T) {
	if err := Init("not a tag!"); err == nil {
		t.Fatal("Init accepted an invalid tag")
	}
	if err := Init("de"); err == nil || !strings.Contains(err.Error(), "no locale file") {
		t.Fatalf("Init(de) = %v, want missing default locale", err)
	}
}
