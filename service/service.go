// Package service wires ingest, metrics and storage into one analysis
// pipeline.
package service

import (
	"github.com/xiaot623/driftscope/config"
	"github.com/xiaot623/driftscope/metrics"
	"github.com/xiaot623/driftscope/store"
)

type Service struct {
	store    store.Store
	detector metrics.Detector
	config   *config.Config
}

// New creates a service. store may be nil for pure batch runs that do
// not persist; detector may be nil to use the built-in heuristic.
func New(store store.Store, detector metrics.Detector, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		detector: detector,
		config:   cfg,
	}
}

// metricsConfig maps the loaded configuration onto the engine thresholds.
func (s *Service) metricsConfig() metrics.Config {
	cfg := metrics.DefaultConfig()
	cfg.Tracker.LatencyGapThreshold = s.config.LatencyGapThreshold
	cfg.Tracker.DivergenceThreshold = s.config.DivergenceThreshold
	cfg.Tracker.RelapseWindow = s.config.RelapseWindow
	return cfg
}
