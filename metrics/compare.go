// Package metrics implements the instability metric computations: span
// comparison, episode tracking, closure classification and dataset-level
// aggregation. All computations are pure functions of their inputs.
package metrics

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/xiaot623/driftscope/domain"
)

// ComparatorConfig declares which payload fields feed the structural
// signature. Two events with identical signatures are structurally
// equivalent.
type ComparatorConfig struct {
	// IncludeArgKeys folds the sorted set of argument keys into the
	// signature.
	IncludeArgKeys bool
}

// DefaultComparatorConfig returns the comparison keys used when the
// caller does not supply any: tool name, method, response class and the
// argument key set.
func DefaultComparatorConfig() ComparatorConfig {
	return ComparatorConfig{IncludeArgKeys: true}
}

// GroupKey derives the structural group key for an event: component plus
// execution stage. Events sharing a key within one session are
// considered comparable.
func GroupKey(ev domain.Event) string {
	return ev.Component + "/" + ev.ExecutionStage
}

// Signature computes the structural signature of one event from the
// declared comparison keys.
func Signature(ev domain.Event, cfg ComparatorConfig) string {
	p := ev.DecodedPayload()
	parts := []string{
		"tool=" + p.Tool,
		"method=" + p.Method,
		"response=" + p.ResponseClass,
	}
	if cfg.IncludeArgKeys {
		parts = append(parts, "args="+argKeySet(p.Args))
	}
	return strings.Join(parts, "|")
}

func argKeySet(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// RelativeGap computes |a-b| / max(a, b, 1) for two latencies. The floor
// of 1 avoids division by zero when both latencies are 0; the result is
// always in [0, 1] and symmetric in its arguments.
func RelativeGap(a, b float64) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	denom := a
	if b > denom {
		denom = b
	}
	if denom < 1 {
		denom = 1
	}
	return diff / denom
}

// CompareSpans buckets a session's events by group key and, for each
// group with at least two members, computes the ordered pairwise
// relative latency gaps and the divergence score (distinct signatures
// minus one). Groups with fewer than two events produce no output.
//
// Gaps are computed between consecutive latency-bearing events within a
// group; a pair with a missing latency is skipped, not defaulted to 0.
func CompareSpans(s domain.Session, cfg ComparatorConfig) []domain.SpanGroupResult {
	keys := []string{}
	groups := map[string][]domain.Event{}
	for _, ev := range s.Events {
		k := GroupKey(ev)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], ev)
	}

	var results []domain.SpanGroupResult
	for _, k := range keys {
		members := groups[k]
		if len(members) < 2 {
			continue
		}

		distinct := map[string]bool{}
		for _, ev := range members {
			distinct[Signature(ev, cfg)] = true
		}

		var gaps []float64
		prev := -1.0
		havePrev := false
		for _, ev := range members {
			lat, ok := ev.LatencyMS()
			if !ok {
				continue
			}
			if havePrev {
				gaps = append(gaps, RelativeGap(prev, lat))
			}
			prev = lat
			havePrev = true
		}

		results = append(results, domain.SpanGroupResult{
			Key:        k,
			Size:       len(members),
			Gaps:       gaps,
			Divergence: len(distinct) - 1,
		})
	}
	return results
}

// divergenceTriggers returns one flag per session event: true when the
// event belongs to a group whose divergence score exceeds the threshold
// and its own signature differs from the group's first-seen signature.
// Such events count as heuristic instability signals for the episode
// tracker.
func divergenceTriggers(s domain.Session, cfg ComparatorConfig, threshold int) []bool {
	first := map[string]string{}
	distinct := map[string]map[string]bool{}
	sigs := make([]string, len(s.Events))
	for i, ev := range s.Events {
		k := GroupKey(ev)
		sig := Signature(ev, cfg)
		sigs[i] = sig
		if _, ok := first[k]; !ok {
			first[k] = sig
			distinct[k] = map[string]bool{}
		}
		distinct[k][sig] = true
	}

	flags := make([]bool, len(s.Events))
	for i, ev := range s.Events {
		k := GroupKey(ev)
		divergence := len(distinct[k]) - 1
		flags[i] = divergence > threshold && sigs[i] != first[k]
	}
	return flags
}
