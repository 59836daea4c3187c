package progress

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func TestReportForwardsWhenNotSilent(t *testing.T) {
	var gotFrac []float64
	var gotMsg []string
	r := New(zerolog.Nop(), false, func(f float64, m string) {
		gotFrac = append(gotFrac, f)
		gotMsg = append(gotMsg, m)
	})
	r.Report(0.25, "loading")
	r.Report(math.NaN(), "")
	if len(gotFrac) != 2 || gotFrac[0] != 0.25 || gotMsg[0] != "loading" {
		t.Fatalf("unexpected notifications: %v %v", gotFrac, gotMsg)
	}
	if !math.IsNaN(gotFrac[1]) {
		t.Fatalf("expected NaN clear event, got %v", gotFrac[1])
	}
}

func TestReportSilentOnlyLogs(t *testing.T) {
	called := false
	r := New(zerolog.Nop(), true, func(float64, string) { called = true })
	r.Report(0.5, "halfway")
	if called {
		t.Fatalf("silent reporter must not notify")
	}
}

func TestReportNilNotifier(t *testing.T) {
	r := New(zerolog.Nop(), false, nil)
	r.Report(1, "done") // must not panic
}

func TestReportSwallowsNotifierPanic(t *testing.T) {
	r := New(zerolog.Nop(), false, func(float64, string) { panic("boom") })
	r.Report(0.1, "x") // must not propagate
}
