// Package i18n localizes the builder's pages and API messages. Locales are
// embedded JSON files; every locale must define the same message IDs as the
// default one.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/pavelanni/exambuilder/internal/model"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

var (
	bundle   *i18n.Bundle
	fallback *i18n.Localizer

	// reported holds message IDs already logged as untranslated.
	reported sync.Map
)

// Init loads the embedded locales with defaultLang as the bundle language.
// It fails when a locale lacks a message that the default locale defines,
// so a half-translated locale never reaches the pages.
func Init(defaultLang string) error {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", defaultLang, err)
	}
	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		return fmt.Errorf("list locales: %w", err)
	}
	ids := make(map[language.Tag][]string)
	for _, name := range files {
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read locale %s: %w", name, err)
		}
		mf, err := b.ParseMessageFileBytes(data, path.Base(name))
		if err != nil {
			return fmt.Errorf("parse locale %s: %w", name, err)
		}
		for _, m := range mf.Messages {
			ids[mf.Tag] = append(ids[mf.Tag], m.ID)
		}
		slog.Debug("loaded locale", "file", name, "messages", len(mf.Messages))
	}
	if err := checkComplete(tag, ids); err != nil {
		return err
	}

	bundle = b
	fallback = i18n.NewLocalizer(b, tag.String())
	reported.Clear()
	return nil
}

// checkComplete reports the first locale missing messages of def.
func checkComplete(def language.Tag, ids map[language.Tag][]string) error {
	want, ok := ids[def]
	if !ok {
		return fmt.Errorf("no locale file for default language %s", def)
	}
	tags := make([]language.Tag, 0, len(ids))
	for t := range ids {
		tags = append(tags, t)
	}
	slices.SortFunc(tags, func(a, b language.Tag) int { return strings.Compare(a.String(), b.String()) })
	for _, t := range tags {
		var missing []string
		for _, id := range want {
			if !slices.Contains(ids[t], id) {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return fmt.Errorf("locale %s is missing %s", t, strings.Join(missing, ", "))
		}
	}
	return nil
}

// Languages lists the loaded locales, default first.
func Languages() []string {
	tags := bundle.LanguageTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// NewLocalizer creates a localizer preferring langs in order.
func NewLocalizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(bundle, langs...)
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func localizerFromCtx(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok {
		return loc
	}
	return fallback
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	s, err := localizerFromCtx(ctx).Localize(cfg)
	if err != nil {
		if _, seen := reported.LoadOrStore(cfg.MessageID, struct{}{}); !seen {
			slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		}
		return cfg.MessageID
	}
	return s
}

// T translates a message by ID. Unknown IDs come back unchanged.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

// Tp translates a pluralized message; the count is available as .Count.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// BoxKind names a bounding-box kind.
func BoxKind(ctx context.Context, k model.BoxKind) string {
	return T(ctx, "Kind"+string(k))
}

// ItemCount is the "n items" badge of an outline section.
func ItemCount(ctx context.Context, n int) string {
	return Tp(ctx, "ItemsCount", n)
}

// PageLabel names a page by its 1-based number.
func PageLabel(ctx context.Context, page int) string {
	return Td(ctx, "PageN", map[string]any{"Page": page})
}
