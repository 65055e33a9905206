package domain

import (
	"fmt"
	"time"
)

// Ratio is a numerator/denominator pair for the ratio metrics. Defined is
// false when the denominator is zero, so "no data" stays distinguishable
// from a computed 0.0.
type Ratio struct {
	Num     int     `json:"num"`
	Den     int     `json:"den"`
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// NewRatio builds a Ratio from raw counts.
func NewRatio(num, den int) Ratio {
	if den == 0 {
		return Ratio{Num: num, Den: den}
	}
	return Ratio{Num: num, Den: den, Value: float64(num) / float64(den), Defined: true}
}

// Percent formats the ratio as a percentage, or "n/a" when undefined.
func (r Ratio) Percent() string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", r.Value*100)
}

// GapStats summarizes a set of relative latency gaps. Count of zero means
// no pairs were comparable; the other fields are then meaningless.
type GapStats struct {
	Count  int     `json:"count"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// DistanceStats summarizes completed-episode recovery distances.
type DistanceStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// SessionMetrics is the per-session result of one metrics pass.
type SessionMetrics struct {
	TraceID       string            `json:"trace_id"`
	EventCount    int               `json:"event_count"`
	Closure       ClosureCategory   `json:"closure"`
	Episodes      []Episode         `json:"episodes,omitempty"`
	HadCorrection bool              `json:"had_correction"`
	Relapsed      bool              `json:"relapsed"`
	Groups        []SpanGroupResult `json:"groups,omitempty"`
	Gaps          []float64         `json:"gaps,omitempty"`
	GapStats      GapStats          `json:"gap_stats"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// Report is the dataset-level output of the metrics aggregator.
type Report struct {
	RunID             string                      `json:"run_id,omitempty"`
	Source            string                      `json:"source,omitempty"`
	GeneratedAt       time.Time                   `json:"generated_at"`
	EventCount        int                         `json:"event_count"`
	SessionCount      int                         `json:"session_count"`
	MalformedLines    int                         `json:"malformed_lines"`
	GapStats          GapStats                    `json:"gap_stats"`
	RecoveryDistances []int                       `json:"recovery_distances,omitempty"`
	RecoveryStats     DistanceStats               `json:"recovery_stats"`
	RelapseRate       Ratio                       `json:"relapse_rate"`
	FailoverFrequency Ratio                       `json:"failover_frequency"`
	ClosureProfile    map[ClosureCategory]int     `json:"closure_profile"`
	ClosureFractions  map[ClosureCategory]float64 `json:"closure_fractions"`
	Sessions          []SessionMetrics            `json:"sessions"`
	Warnings          []string                    `json:"warnings,omitempty"`
}
