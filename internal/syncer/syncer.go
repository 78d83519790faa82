// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"starmap/internal/database"
	custom_errors "starmap/internal/errors"
	"starmap/internal/mirror"
	"starmap/internal/model"
	"starmap/internal/publish"
	"starmap/internal/render"
	"starmap/internal/stars"
)

// Options configures where a sync run writes its document.
type Options struct {
	Username     string
	OutputPath   string
	TargetOwner  string
	TargetRepo   string
	TargetBranch string
	Interval     time.Duration
}

// Report summarizes one sync run.
type Report struct {
	RunID      string
	Records    int
	LocalPath  string
	Mirrored   int
	Published  bool
	Publish    publish.Result
	PublishErr error
	RawURL     string
}

// Syncer orchestrates a sync run: one ingestion, feeding the renderer, the
// local save, the index mirror and the remote publish.
type Syncer struct {
	source     stars.Source
	renderer   *render.Renderer
	publisher  *publish.Publisher
	mirror     *mirror.Mirror
	ledger     database.Querier
	logger     *slog.Logger
	opts       Options
	remotePath string
}

// NewSyncer creates a new Syncer instance. publisher, mirror and ledger may
// be nil to disable the corresponding step.
func NewSyncer(source stars.Source, renderer *render.Renderer, publisher *publish.Publisher, m *mirror.Mirror, ledger database.Querier, logger *slog.Logger, opts Options) (*Syncer, error) {
	if opts.Username == "" {
		return nil, &custom_errors.ErrConfiguration{Field: "GITHUB_USERNAME"}
	}
	if opts.OutputPath == "" {
		return nil, &custom_errors.ErrConfiguration{Field: "OUTPUT_PATH"}
	}

	return &Syncer{
		source:     source,
		renderer:   renderer,
		publisher:  publisher,
		mirror:     m,
		ledger:     ledger,
		logger:     logger,
		opts:       opts,
		remotePath: path.Base(filepath.ToSlash(opts.OutputPath)),
	}, nil
}

// Start runs a sync immediately and then on every interval tick until ctx is done.
func (s *Syncer) Start(ctx context.Context) error {
	if s.opts.Interval <= 0 {
		return errors.New("sync interval must be positive to watch")
	}

	s.logger.Info("Starting syncer", "interval", s.opts.Interval.String())
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.runSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func (s *Syncer) runSyncCycle(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil {
		s.logger.Error("Sync run failed", "error", err)
	}
}

// Run performs one sync. Ingestion, rendering and the local save are fatal
// on failure; mirroring and publishing are best-effort and reported in the
// returned Report.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	startedAt := s.renderer.Now()
	logger := s.logger.With("run_id", report.RunID, "username", s.opts.Username)
	logger.Info("Fetching starred repositories")

	records, err := s.source.ListStarred(ctx, s.opts.Username)
	if err != nil {
		return nil, fmt.Errorf("ingesting starred repositories: %w", err)
	}
	report.Records = len(records)

	if len(records) == 0 {
		logger.Warn("No starred repositories found")
		return report, nil
	}

	doc, err := s.renderer.Render(records)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(s.opts.OutputPath, []byte(doc)); err != nil {
		return nil, fmt.Errorf("saving %s: %w", s.opts.OutputPath, err)
	}
	report.LocalPath = s.opts.OutputPath
	logger.Info("Saved document", "path", s.opts.OutputPath, "records", len(records))

	report.Mirrored = s.mirror.Mirror(ctx, records)

	s.publishDocument(ctx, logger, []byte(doc), report)
	s.recordRun(ctx, logger, report, startedAt)

	logger.Info("Sync complete", "records", report.Records, "published", report.Published, "mirrored", report.Mirrored)
	return report, nil
}

// publishDocument writes the document remotely, re-reading the version
// token and writing once more if the first write conflicts.
func (s *Syncer) publishDocument(ctx context.Context, logger *slog.Logger, doc []byte, report *Report) {
	if s.publisher == nil {
		logger.Info("Publishing disabled, skipping")
		return
	}

	message := "Update starred repos - " + s.renderer.Now().Format(render.TimestampLayout)
	result, err := s.publisher.Publish(ctx, s.remotePath, doc, s.opts.TargetBranch, message)

	var conflict *custom_errors.ErrPublishConflict
	if errors.As(err, &conflict) {
		logger.Warn("Document changed during publish, retrying once", "error", err)
		result, err = s.publisher.Publish(ctx, s.remotePath, doc, s.opts.TargetBranch, message)
	}
	if err != nil {
		report.PublishErr = err
		logger.Error("Failed to publish document", "error", err)
		return
	}

	report.Published = true
	report.Publish = result
	report.RawURL = fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s",
		s.opts.TargetOwner, s.opts.TargetRepo, s.opts.TargetBranch, s.remotePath)
	logger.Info("Committed document", "outcome", result.Outcome, "raw_url", report.RawURL)
}

func (s *Syncer) recordRun(ctx context.Context, logger *slog.Logger, report *Report, startedAt time.Time) {
	if s.ledger == nil {
		return
	}

	run := model.SyncRun{
		ID:             report.RunID,
		Username:       s.opts.Username,
		RecordCount:    report.Records,
		LocalPath:      report.LocalPath,
		Published:      report.Published,
		PublishOutcome: string(report.Publish.Outcome),
		Mirrored:       report.Mirrored,
		StartedAt:      startedAt,
		FinishedAt:     s.renderer.Now(),
	}
	if report.PublishErr != nil {
		run.PublishError = report.PublishErr.Error()
	}

	if err := s.ledger.CreateSyncRun(ctx, run); err != nil {
		logger.Error("Failed to record sync run", "error", err)
	}
}

// writeFileAtomic writes data to a temp file next to name and renames it over name.
func writeFileAtomic(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".starmap-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
