package metrics

import (
	"context"

	"github.com/xiaot623/driftscope/domain"
)

// TrackerConfig carries the caller-supplied thresholds for the episode
// tracker's heuristic triggers.
type TrackerConfig struct {
	// LatencyGapThreshold marks an event as an instability signal when
	// the relative gap to the previous latency-bearing event exceeds it.
	// A gap exactly at the threshold does not trigger. Range [0, 1];
	// default 0.5.
	LatencyGapThreshold float64
	// DivergenceThreshold marks structurally divergent group members as
	// instability signals once their group's divergence score exceeds
	// it. Default 1.
	DivergenceThreshold int
	// RelapseWindow bounds, in turn units, how far past the relapse
	// boundary an instability signal still counts as a relapse. Zero
	// means unbounded (the entire remaining session).
	RelapseWindow int
}

// DefaultTrackerConfig returns the documented threshold defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		LatencyGapThreshold: 0.5,
		DivergenceThreshold: 1,
	}
}

// EpisodeResult is the per-session output of the episode tracker.
type EpisodeResult struct {
	Episodes      []domain.Episode
	HadCorrection bool
	Relapsed      bool
}

// trackerState is the two-state machine per session.
type trackerState int

const (
	stateStable trackerState = iota
	stateUnstable
)

// TrackEpisodes runs the instability state machine over one session.
//
// Stable -> Unstable(onset) on an instability signal; Unstable -> Stable
// on a recovery signal, emitting one completed episode whose distance is
// measured in turn units. A second instability signal while already
// Unstable keeps the earliest unresolved onset. A session ending while
// Unstable drops the open episode.
//
// Relapse: the boundary is the first correction event (or, absent any
// correction, the first completed episode's recovery). A later
// instability signal within the relapse window marks the session as
// relapsed. Subsequent corrections do not reset the boundary.
func TrackEpisodes(ctx context.Context, s domain.Session, det Detector, cmpCfg ComparatorConfig, cfg TrackerConfig) (EpisodeResult, error) {
	var result EpisodeResult

	divergent := divergenceTriggers(s, cmpCfg, cfg.DivergenceThreshold)

	state := stateStable
	onsetTurn := 0

	boundarySet := false
	boundaryTurn := 0

	prevLatency := -1.0
	haveLatency := false

	for i, ev := range s.Events {
		turn := ev.TurnIndex(i)

		sig, err := det.Classify(ctx, ev)
		if err != nil {
			return EpisodeResult{}, err
		}

		// Heuristic triggers promote an otherwise unmarked event.
		if sig == SignalNone {
			if divergent[i] {
				sig = SignalInstability
			} else if lat, ok := ev.LatencyMS(); ok {
				if haveLatency && RelativeGap(prevLatency, lat) > cfg.LatencyGapThreshold {
					sig = SignalInstability
				}
			}
		}
		if lat, ok := ev.LatencyMS(); ok {
			prevLatency = lat
			haveLatency = true
		}

		switch sig {
		case SignalInstability:
			if state == stateStable {
				state = stateUnstable
				onsetTurn = turn
			}
			if boundarySet {
				inWindow := cfg.RelapseWindow <= 0 || turn-boundaryTurn <= cfg.RelapseWindow
				if turn > boundaryTurn && inWindow {
					result.Relapsed = true
				}
			}
		case SignalRecovery:
			if state == stateUnstable {
				state = stateStable
				dist := turn - onsetTurn
				if dist < 0 {
					dist = 0
				}
				result.Episodes = append(result.Episodes, domain.Episode{
					OnsetTurn:    onsetTurn,
					RecoveryTurn: turn,
					Distance:     dist,
				})
				if !boundarySet {
					boundarySet = true
					boundaryTurn = turn
				}
			}
		case SignalCorrection:
			result.HadCorrection = true
			// First qualifying boundary wins; later corrections do not
			// reset the relapse check.
			if !boundarySet {
				boundarySet = true
				boundaryTurn = turn
			}
		}
	}

	return result, nil
}
