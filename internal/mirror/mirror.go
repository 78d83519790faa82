// Package mirror replicates star records into an external indexing sink.
// Each record is submitted independently; a failed submission is logged and
// counted, never fatal.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"starmap/internal/model"
)

// RecordType tags every mirrored entry.
const RecordType = "github_star"

// Mirror submits records to a Sink with bounded concurrency and a rate limit.
type Mirror struct {
	sink        Sink
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger
}

// NewMirror creates a Mirror. A nil sink makes Mirror a no-op. A
// non-positive ratePerSecond disables rate limiting.
func NewMirror(sink Sink, concurrency int, ratePerSecond float64, logger *slog.Logger) *Mirror {
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Mirror{
		sink:        sink,
		limiter:     rate.NewLimiter(limit, concurrency),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Enabled reports whether a sink is configured.
func (m *Mirror) Enabled() bool {
	return m != nil && m.sink != nil
}

// Mirror submits every record and returns how many submissions succeeded.
func (m *Mirror) Mirror(ctx context.Context, records []model.StarRecord) int {
	if !m.Enabled() {
		m.logDisabled()
		return 0
	}

	m.logger.Info("Mirroring records to index sink", "count", len(records))

	var succeeded int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for _, rec := range records {
		g.Go(func() error {
			if err := m.limiter.Wait(gctx); err != nil {
				m.logger.Warn("Index submission skipped", "repo", rec.Name, "error", err)
				return nil
			}
			if err := m.sink.AddMemory(gctx, Summary(rec), Metadata(rec)); err != nil {
				m.logger.Warn("Index submission failed", "repo", rec.Name, "error", err)
				return nil
			}
			atomic.AddInt64(&succeeded, 1)
			return nil
		})
	}
	_ = g.Wait() // submissions never return errors

	n := int(atomic.LoadInt64(&succeeded))
	m.logger.Info("Mirrored records to index sink", "succeeded", n, "total", len(records))
	return n
}

func (m *Mirror) logDisabled() {
	if m != nil && m.logger != nil {
		m.logger.Info("Index sink not configured, skipping mirror")
	}
}

// Summary is the text indexed for a record.
func Summary(rec model.StarRecord) string {
	description := rec.Description
	if description == "" {
		description = "No description"
	}
	topics := "None"
	if len(rec.Topics) > 0 {
		topics = strings.Join(rec.Topics, ", ")
	}

	return fmt.Sprintf("Repository: %s\nDescription: %s\nLanguage: %s\nTopics: %s\nStars: %d\nURL: %s\n",
		rec.Name, description, rec.Language, topics, rec.Stars, rec.URL)
}

// Metadata is the structured tuple attached to a mirrored record.
func Metadata(rec model.StarRecord) map[string]any {
	return map[string]any{
		"type":     RecordType,
		"name":     rec.Name,
		"language": rec.Language,
		"stars":    rec.Stars,
		"url":      rec.URL,
	}
}
