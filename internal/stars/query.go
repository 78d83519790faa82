// Package stars holds the query operations applied to a normalized star set.
// Every function is pure: inputs are never mutated, except by SortByRecency,
// whose purpose is to reorder its argument.
package stars

import (
	"context"
	"slices"
	"sort"
	"strings"

	"starmap/internal/model"
)

// DefaultLimit is used when a caller passes a non-positive limit.
const DefaultLimit = 10

// Source produces a fresh star set for a user.
type Source interface {
	ListStarred(ctx context.Context, username string) ([]model.StarRecord, error)
}

// Search keeps records whose name, description, language or any topic
// contains query, case-insensitively, in their original order.
func Search(records []model.StarRecord, query string, limit int) []model.StarRecord {
	q := strings.ToLower(query)
	return filter(records, limit, func(r model.StarRecord) bool {
		if strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Description), q) ||
			strings.Contains(strings.ToLower(r.Language), q) {
			return true
		}
		return anyTopicContains(r.Topics, q)
	})
}

// ByLanguage keeps records whose language equals language, case-insensitively.
func ByLanguage(records []model.StarRecord, language string, limit int) []model.StarRecord {
	return filter(records, limit, func(r model.StarRecord) bool {
		return strings.EqualFold(r.Language, language)
	})
}

// ByTopic keeps records having a topic that contains topic as a substring.
func ByTopic(records []model.StarRecord, topic string, limit int) []model.StarRecord {
	t := strings.ToLower(topic)
	return filter(records, limit, func(r model.StarRecord) bool {
		return anyTopicContains(r.Topics, t)
	})
}

// TopStars returns the most starred records. Ties keep their original order.
func TopStars(records []model.StarRecord, limit int) []model.StarRecord {
	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Stars > sorted[j].Stars
	})
	return truncate(sorted, limit)
}

// RecentStars returns the most recently starred records first. Records
// without a starred_at timestamp come last.
func RecentStars(records []model.StarRecord, limit int) []model.StarRecord {
	sorted := slices.Clone(records)
	SortByRecency(sorted)
	return truncate(sorted, limit)
}

// SortByRecency sorts records in place, most recently starred first.
// The sort is stable.
func SortByRecency(records []model.StarRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return MoreRecent(records[i].StarredAt, records[j].StarredAt)
	})
}

// MoreRecent reports whether timestamp a sorts before b in descending
// recency. ISO 8601 timestamps compare lexically; the empty string is older
// than any real timestamp.
func MoreRecent(a, b string) bool {
	switch {
	case a == "":
		return false
	case b == "":
		return true
	default:
		return a > b
	}
}

func filter(records []model.StarRecord, limit int, keep func(model.StarRecord) bool) []model.StarRecord {
	limit = normalizeLimit(limit)
	out := []model.StarRecord{}
	for _, r := range records {
		if len(out) == limit {
			break
		}
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func truncate(records []model.StarRecord, limit int) []model.StarRecord {
	limit = normalizeLimit(limit)
	if len(records) > limit {
		return records[:limit]
	}
	if records == nil {
		return []model.StarRecord{}
	}
	return records
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func anyTopicContains(topics []string, needle string) bool {
	for _, topic := range topics {
		if strings.Contains(strings.ToLower(topic), needle) {
			return true
		}
	}
	return false
}
