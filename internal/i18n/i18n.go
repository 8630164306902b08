// Package i18n loads the embedded message catalogues and translates
// message IDs for the request's language.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// catalogue is the loaded bundle plus one localizer per supported tag.
// supported[0] is the default language passed to Init.
type catalogue struct {
	bundle     *i18n.Bundle
	supported  []language.Tag
	matcher    language.Matcher
	localizers map[string]*i18n.Localizer
}

var cat *catalogue

// locale is what a request carries: the resolved tag and its localizer.
type locale struct {
	lang string
	loc  *i18n.Localizer
}

type ctxKey struct{}

// Init loads every embedded catalogue. lang is the fallback for requests
// whose preferences match no catalogue.
func Init(lang string) error {
	def, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	supported := []language.Tag{def}
	for _, t := range bundle.LanguageTags() {
		if t != def {
			supported = append(supported, t)
		}
	}
	c := &catalogue{
		bundle:     bundle,
		supported:  supported,
		matcher:    language.NewMatcher(supported),
		localizers: make(map[string]*i18n.Localizer, len(supported)),
	}
	for _, t := range supported {
		c.localizers[t.String()] = i18n.NewLocalizer(bundle, t.String())
	}
	cat = c
	return nil
}

// Languages lists the tags that have a message catalogue.
func Languages() []string {
	tags := cat.bundle.LanguageTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

func (c *catalogue) locale(lang string) locale {
	if loc, ok := c.localizers[lang]; ok {
		return locale{lang: lang, loc: loc}
	}
	return locale{lang: lang, loc: i18n.NewLocalizer(c.bundle, lang)}
}

// negotiate picks the best catalogue for an Accept-Language header value.
// ok is false when nothing in the header matches a catalogue.
func (c *catalogue) negotiate(accept string) (locale, bool) {
	if accept == "" {
		return locale{}, false
	}
	prefs, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(prefs) == 0 {
		return locale{}, false
	}
	_, idx, conf := c.matcher.Match(prefs...)
	if conf == language.No {
		return locale{}, false
	}
	return c.locale(c.supported[idx].String()), true
}

// WithLanguage returns a context that translates into lang.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, cat.locale(lang))
}

func localeFromCtx(ctx context.Context) locale {
	if l, ok := ctx.Value(ctxKey{}).(locale); ok {
		return l
	}
	return cat.locale(cat.supported[0].String())
}

// Lang returns the language tag the context translates into.
func Lang(ctx context.Context) string {
	return localeFromCtx(ctx).lang
}

// localize falls back to the message ID so a missing key shows up on the
// page instead of an empty string.
func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	s, err := localeFromCtx(ctx).loc.Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "lang", Lang(ctx), "error", err)
		return cfg.MessageID
	}
	return s
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

// Tp translates a pluralized message; the template sees the count as .Count.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}
