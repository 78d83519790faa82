// internal/github/normalize.go
package github

import (
	"encoding/json"

	"github.com/spf13/cast"

	"starmap/internal/model"
)

// RawEntry is one element of a starred listing page. The listing returns
// either bare repository objects or, with the star media type, wrappers
// carrying the repository and the time it was starred.
type RawEntry interface {
	repository() map[string]any
	starredAt() string
}

// PlainRepoEntry is a bare repository object.
type PlainRepoEntry struct {
	Repo map[string]any
}

func (e PlainRepoEntry) repository() map[string]any { return e.Repo }
func (e PlainRepoEntry) starredAt() string          { return "" }

// WrappedStarEntry is a {"starred_at": ..., "repo": {...}} wrapper.
type WrappedStarEntry struct {
	Repo      map[string]any
	StarredAt string
}

func (e WrappedStarEntry) repository() map[string]any { return e.Repo }
func (e WrappedStarEntry) starredAt() string          { return e.StarredAt }

// ParseEntry classifies a raw listing element. Anything that is not a JSON
// object becomes an empty PlainRepoEntry.
func ParseEntry(raw json.RawMessage) RawEntry {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return PlainRepoEntry{Repo: map[string]any{}}
	}

	wrapped, ok := obj["repo"]
	if !ok {
		return PlainRepoEntry{Repo: obj}
	}
	repo, ok := wrapped.(map[string]any)
	if !ok {
		repo = map[string]any{}
	}
	return WrappedStarEntry{
		Repo:      repo,
		StarredAt: stringField(obj, "starred_at", ""),
	}
}

// Normalize converts a raw entry into a StarRecord. It never fails: missing,
// null or mistyped fields fall back to their defaults.
func Normalize(entry RawEntry) model.StarRecord {
	repo := entry.repository()
	if repo == nil {
		repo = map[string]any{}
	}

	stars := intField(repo, "stargazers_count")
	if stars < 0 {
		stars = 0
	}

	return model.StarRecord{
		Name:        stringField(repo, "full_name", ""),
		Description: stringField(repo, "description", ""),
		URL:         stringField(repo, "html_url", ""),
		Language:    stringField(repo, "language", model.UnknownLanguage),
		Topics:      stringsField(repo, "topics"),
		Stars:       stars,
		StarredAt:   entry.starredAt(),
		LastUpdated: stringField(repo, "updated_at", ""),
		Homepage:    stringField(repo, "homepage", ""),
	}
}

func stringField(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	if _, isMap := v.(map[string]any); isMap {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return s
}

func intField(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok || v == nil {
		return 0
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return n
}

// stringsField always returns a non-nil slice so records serialize topics as [].
func stringsField(m map[string]any, key string) []string {
	v, ok := m[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(v))
	for _, item := range v {
		s, ok := item.(string)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
