package synth

import (
	"bytes"
	"testing"

	"github.com/xiaot623/driftscope/ingest"
)

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	opts := Options{Variant: VariantLongHorizon, Sessions: 2, Turns: 12, Seed: 42}

	var a, b bytes.Buffer
	if err := Generate(&a, opts); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := Generate(&b, opts); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("same seed must produce identical output")
	}

	var c bytes.Buffer
	opts.Seed = 43
	if err := Generate(&c, opts); err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	if bytes.Equal(a.Bytes(), c.Bytes()) {
		t.Fatal("different seeds should produce different output")
	}
}

func TestGeneratedOutputRoundTripsThroughIngest(t *testing.T) {
	for _, variant := range []string{VariantLongHorizon, VariantSimpleCorrectionLoop, VariantNoisyMixed} {
		t.Run(variant, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Generate(&buf, Options{Variant: variant, Sessions: 4, Turns: 10, Seed: 7}); err != nil {
				t.Fatalf("Generate failed: %v", err)
			}

			result, err := ingest.Read(&buf, ingest.Options{Strict: true})
			if err != nil {
				t.Fatalf("ingest failed: %v", err)
			}
			if result.MalformedLines != 0 {
				t.Fatalf("generator emitted malformed lines: %v", result.LineErrors)
			}

			sessions, warnings := ingest.GroupByTrace(result.Events)
			if len(sessions) != 4 {
				t.Errorf("expected 4 sessions, got %d", len(sessions))
			}
			if len(warnings) != 0 {
				t.Errorf("generated timestamps must be monotonic: %v", warnings)
			}
		})
	}
}

func TestGenerateRejectsUnknownVariant(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, Options{Variant: "nope"}); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestCorrectionLoopShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, Options{Variant: VariantSimpleCorrectionLoop, Sessions: 1, Seed: 1}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	result, err := ingest.Read(&buf, ingest.Options{})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	// init, user, step, drift_like, correction, recovered step, end.
	if len(result.Events) != 7 {
		t.Fatalf("expected 7 events, got %d", len(result.Events))
	}
	types := map[string]bool{}
	for _, ev := range result.Events {
		types[ev.EventType] = true
	}
	for _, want := range []string{"drift_like", "correction", "session_end"} {
		if !types[want] {
			t.Errorf("missing %s event in correction loop", want)
		}
	}
}
