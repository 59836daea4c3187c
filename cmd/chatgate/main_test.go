package main

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,", []string{"a", "b"}},
		{",,", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("splitCSV(%q)=%v want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("splitCSV(%q)=%v want %v", c.in, got, c.want)
			}
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	if parseLogLevel("debug") != zerolog.DebugLevel {
		t.Fatalf("debug mapping wrong")
	}
	if parseLogLevel("bogus") != zerolog.InfoLevel {
		t.Fatalf("fallback should be info")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CHATGATE_TEST_STR", "x")
	if envStr("CHATGATE_TEST_STR", "d") != "x" {
		t.Fatalf("envStr should prefer env value")
	}
	if envStr("CHATGATE_TEST_MISSING", "d") != "d" {
		t.Fatalf("envStr should fall back to default")
	}
	t.Setenv("CHATGATE_TEST_INT", "7")
	if envInt("CHATGATE_TEST_INT", 1) != 7 {
		t.Fatalf("envInt should parse env value")
	}
	t.Setenv("CHATGATE_TEST_INT", "nope")
	if envInt("CHATGATE_TEST_INT", 1) != 1 {
		t.Fatalf("envInt should ignore garbage")
	}
	t.Setenv("CHATGATE_TEST_BOOL", "true")
	if !envBool("CHATGATE_TEST_BOOL", false) {
		t.Fatalf("envBool should parse true")
	}
}
