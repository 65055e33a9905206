// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/xiaot623/driftscope/domain"
)

// Store defines the interface for analysis persistence.
type Store interface {
	// Analysis run operations
	CreateAnalysisRun(ctx context.Context, run *domain.AnalysisRun) error
	GetAnalysisRun(ctx context.Context, runID string) (*domain.AnalysisRun, error)
	ListAnalysisRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error)

	// Per-session metric operations
	SaveSessionMetrics(ctx context.Context, runID string, m *domain.SessionMetrics) error
	GetSessionMetrics(ctx context.Context, runID string) ([]domain.SessionMetrics, error)

	// Report operations
	SaveReport(ctx context.Context, report *domain.Report) error
	GetReport(ctx context.Context, runID string) (*domain.Report, error)

	// Lifecycle
	Close() error
}
