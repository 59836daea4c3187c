package types

import "testing"

func fptr(v float32) *float32 { return &v }
func iptr(v int) *int         { return &v }

func TestMergeDisjointFields(t *testing.T) {
	def := CompletionParams{Temperature: fptr(0.7)}
	out := def.Merge(CompletionParams{MaxTokens: iptr(50)})
	if out.Temperature == nil || *out.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7 from default, got %+v", out.Temperature)
	}
	if out.MaxTokens == nil || *out.MaxTokens != 50 {
		t.Fatalf("expected max_tokens 50 from override, got %+v", out.MaxTokens)
	}
}

func TestMergeOverrideWins(t *testing.T) {
	def := CompletionParams{Temperature: fptr(0.7)}
	out := def.Merge(CompletionParams{Temperature: fptr(0.2)})
	if out.Temperature == nil || *out.Temperature != 0.2 {
		t.Fatalf("expected override temperature 0.2, got %+v", out.Temperature)
	}
}

func TestMergeEmptyOverrideKeepsDefaults(t *testing.T) {
	def := CompletionParams{
		Temperature: fptr(0.7),
		TopP:        fptr(0.9),
		MaxTokens:   iptr(128),
		Stop:        []string{"END"},
	}
	out := def.Merge(CompletionParams{})
	if *out.Temperature != 0.7 || *out.TopP != 0.9 || *out.MaxTokens != 128 {
		t.Fatalf("defaults lost in merge: %+v", out)
	}
	if len(out.Stop) != 1 || out.Stop[0] != "END" {
		t.Fatalf("stop sequence lost in merge: %+v", out.Stop)
	}
}

func TestMergeStopOverride(t *testing.T) {
	def := CompletionParams{Stop: []string{"END"}}
	out := def.Merge(CompletionParams{Stop: []string{"\n\n", "STOP"}})
	if len(out.Stop) != 2 || out.Stop[0] != "\n\n" {
		t.Fatalf("expected override stop sequences, got %+v", out.Stop)
	}
}

func TestMergeDoesNotMutateReceiver(t *testing.T) {
	def := CompletionParams{Temperature: fptr(0.7)}
	_ = def.Merge(CompletionParams{Temperature: fptr(0.1)})
	if *def.Temperature != 0.7 {
		t.Fatalf("merge mutated the default set")
	}
}
