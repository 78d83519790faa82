// Package render turns a star set into the published markdown document.
package render

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"starmap/internal/model"
	"starmap/internal/stars"
)

const (
	// TimestampLayout is used for the generation header and commit messages.
	TimestampLayout = "2006-01-02 15:04 UTC"

	// MaxTopics is the number of topic tags shown per repository.
	MaxTopics = 5

	noDescription = "_No description provided_"
	topicSep      = " · "
)

//go:embed document.md.tmpl
var documentTemplate string

// Renderer produces the markdown document. The clock is the only source of
// non-determinism and is injected so output can be reproduced in tests.
type Renderer struct {
	tmpl *template.Template
	now  func() time.Time
}

type documentView struct {
	GeneratedAt string
	Total       int
	Entries     []entryView
}

type entryView struct {
	Name          string
	URL           string
	Description   string
	LanguageBadge string
	Stars         int
	Topics        string
}

// NewRenderer parses the document template. A nil clock means time.Now.
func NewRenderer(now func() time.Time) (*Renderer, error) {
	tmpl, err := template.New("document").Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing document template: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Renderer{tmpl: tmpl, now: now}, nil
}

// Now returns the renderer's current time in UTC.
func (r *Renderer) Now() time.Time {
	return r.now().UTC()
}

// Render sorts records in place, most recently starred first, and renders
// them. Callers observe the new order after the call returns.
func (r *Renderer) Render(records []model.StarRecord) (string, error) {
	stars.SortByRecency(records)

	view := documentView{
		GeneratedAt: r.Now().Format(TimestampLayout),
		Total:       len(records),
		Entries:     make([]entryView, 0, len(records)),
	}
	for _, rec := range records {
		view.Entries = append(view.Entries, toEntryView(rec))
	}

	var b strings.Builder
	if err := r.tmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return b.String(), nil
}

func toEntryView(rec model.StarRecord) entryView {
	description := rec.Description
	if description == "" {
		description = noDescription
	}

	return entryView{
		Name:          rec.Name,
		URL:           rec.URL,
		Description:   description,
		LanguageBadge: languageBadge(rec.Language),
		Stars:         rec.Stars,
		Topics:        formatTopics(rec.Topics),
	}
}

// languageBadge returns a shields.io badge, or "" for unknown languages.
func languageBadge(language string) string {
	if language == "" || language == model.UnknownLanguage {
		return ""
	}
	label := strings.NewReplacer("-", "--", "_", "__", " ", "%20").Replace(language)
	return fmt.Sprintf("![%s](https://img.shields.io/badge/-%s-grey)", language, label)
}

func formatTopics(topics []string) string {
	if len(topics) > MaxTopics {
		topics = topics[:MaxTopics]
	}
	quoted := make([]string, len(topics))
	for i, t := range topics {
		quoted[i] = "`" + t + "`"
	}
	return strings.Join(quoted, topicSep)
}
