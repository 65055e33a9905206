package metrics

import (
	"context"
	"sort"

	"github.com/xiaot623/driftscope/domain"
)

// Config bundles the comparator and tracker settings for one pass.
type Config struct {
	Comparator ComparatorConfig
	Tracker    TrackerConfig
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Comparator: DefaultComparatorConfig(),
		Tracker:    DefaultTrackerConfig(),
	}
}

// Aggregator folds per-session results into dataset-level statistics.
// It carries no hidden state between invocations; running it twice on
// the same input yields identical output.
type Aggregator struct {
	cfg Config
	det Detector
}

// NewAggregator creates an aggregator. det may be nil, in which case the
// built-in heuristic detector is used.
func NewAggregator(cfg Config, det Detector) *Aggregator {
	if det == nil {
		det = HeuristicDetector{}
	}
	return &Aggregator{cfg: cfg, det: det}
}

// AnalyzeSession runs the comparator, episode tracker and closure
// classifier over one session.
func (a *Aggregator) AnalyzeSession(ctx context.Context, s domain.Session) (*domain.SessionMetrics, error) {
	closure, err := ClassifyClosure(s)
	if err != nil {
		return nil, err
	}

	groups := CompareSpans(s, a.cfg.Comparator)
	var gaps []float64
	for _, g := range groups {
		gaps = append(gaps, g.Gaps...)
	}

	episodes, err := TrackEpisodes(ctx, s, a.det, a.cfg.Comparator, a.cfg.Tracker)
	if err != nil {
		return nil, err
	}

	return &domain.SessionMetrics{
		TraceID:       s.TraceID,
		EventCount:    len(s.Events),
		Closure:       closure,
		Episodes:      episodes.Episodes,
		HadCorrection: episodes.HadCorrection,
		Relapsed:      episodes.Relapsed,
		Groups:        groups,
		Gaps:          gaps,
		GapStats:      GapStats(gaps),
	}, nil
}

// Analyze runs all sessions through the per-session computations and
// folds the results into a dataset-level report. Sessions appear in the
// report sorted by trace_id, and no timestamps are stamped here, so
// repeated runs over the same input are byte-identical.
func (a *Aggregator) Analyze(ctx context.Context, sessions []domain.Session) (*domain.Report, error) {
	report := &domain.Report{
		SessionCount:     len(sessions),
		ClosureProfile:   map[domain.ClosureCategory]int{},
		ClosureFractions: map[domain.ClosureCategory]float64{},
	}

	var allGaps []float64
	relapsed := 0
	corrected := 0
	failoverEvents := 0
	phaseEvents := 0

	for _, s := range sessions {
		m, err := a.AnalyzeSession(ctx, s)
		if err != nil {
			return nil, err
		}
		report.Sessions = append(report.Sessions, *m)
		report.EventCount += m.EventCount
		report.ClosureProfile[m.Closure]++

		allGaps = append(allGaps, m.Gaps...)
		for _, ep := range m.Episodes {
			report.RecoveryDistances = append(report.RecoveryDistances, ep.Distance)
		}
		if m.HadCorrection {
			corrected++
			if m.Relapsed {
				relapsed++
			}
		}

		for _, ev := range s.Events {
			phase := ev.LifecyclePhase()
			if !domain.RecognizedPhase(phase) {
				continue
			}
			phaseEvents++
			if phase == domain.PhaseFailover {
				failoverEvents++
			}
		}
	}

	sort.Slice(report.Sessions, func(i, j int) bool {
		return report.Sessions[i].TraceID < report.Sessions[j].TraceID
	})

	report.GapStats = GapStats(allGaps)
	report.RecoveryStats = DistanceStats(report.RecoveryDistances)
	report.RelapseRate = domain.NewRatio(relapsed, corrected)
	report.FailoverFrequency = domain.NewRatio(failoverEvents, phaseEvents)

	if len(sessions) > 0 {
		for cat, n := range report.ClosureProfile {
			report.ClosureFractions[cat] = float64(n) / float64(len(sessions))
		}
	}
	return report, nil
}
