package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/driftscope/domain"
	"github.com/xiaot623/driftscope/ingest"
	"github.com/xiaot623/driftscope/metrics"
)

// AnalyzeFile runs one metrics pass over a JSONL trace file.
func (s *Service) AnalyzeFile(ctx context.Context, path string, persist bool) (*domain.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()
	return s.AnalyzeReader(ctx, f, path, persist)
}

// AnalyzeReader runs one metrics pass over a JSONL stream. Malformed
// lines are skipped and counted; timestamp regressions are warnings, not
// errors. With persist set, the run, its per-session metrics and the
// full report are stored under a fresh run_id.
func (s *Service) AnalyzeReader(ctx context.Context, r io.Reader, source string, persist bool) (*domain.Report, error) {
	read, err := ingest.Read(r, ingest.Options{
		MaxSessions: s.config.MaxSessions,
		Strict:      s.config.StrictInput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read traces: %w", err)
	}

	sessions, warnings := ingest.GroupByTrace(read.Events)
	for _, w := range warnings {
		log.Printf("WARN: %s", w)
	}
	if read.MalformedLines > 0 {
		log.Printf("WARN: skipped %d malformed lines in %s", read.MalformedLines, source)
	}

	agg := metrics.NewAggregator(s.metricsConfig(), s.detector)
	report, err := agg.Analyze(ctx, sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute metrics: %w", err)
	}

	report.Source = source
	report.GeneratedAt = time.Now().UTC()
	report.MalformedLines = read.MalformedLines
	report.Warnings = append(report.Warnings, warnings...)
	report.Warnings = append(report.Warnings, read.LineErrors...)

	if persist {
		if err := s.PersistReport(ctx, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// PersistReport stores the run, its sessions and the report under a
// fresh run_id. Callers that validate a report before committing it run
// AnalyzeReader without persist and call this afterwards.
func (s *Service) PersistReport(ctx context.Context, report *domain.Report) error {
	if s.store == nil {
		return fmt.Errorf("no store configured")
	}

	report.RunID = "run_" + uuid.New().String()[:8]
	run := &domain.AnalysisRun{
		RunID:          report.RunID,
		Source:         report.Source,
		CreatedAt:      report.GeneratedAt,
		EventCount:     report.EventCount,
		SessionCount:   report.SessionCount,
		MalformedLines: report.MalformedLines,
	}
	if err := s.store.CreateAnalysisRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}
	for i := range report.Sessions {
		if err := s.store.SaveSessionMetrics(ctx, report.RunID, &report.Sessions[i]); err != nil {
			return fmt.Errorf("failed to save session metrics: %w", err)
		}
	}
	if err := s.store.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// CheckFile runs the structural sanity checks over a JSONL trace file.
func (s *Service) CheckFile(ctx context.Context, path string) (*metrics.SanityReport, error) {
	read, err := ingest.ReadFile(path, ingest.Options{
		MaxSessions: s.config.MaxSessions,
		Strict:      s.config.StrictInput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read traces: %w", err)
	}
	sessions, _ := ingest.GroupByTrace(read.Events)
	return metrics.CheckTraces(sessions), nil
}
