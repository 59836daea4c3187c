// Package progress formats opaque load-progress events from the inference
// backend into a silence-aware side channel.
package progress

import (
	"math"

	"github.com/rs/zerolog"
)

// NotifyFunc surfaces a progress update to an interested collaborator (UI,
// event bus). fraction is in [0,1]; NaN means "hide the indicator".
type NotifyFunc func(fraction float64, message string)

// Reporter logs progress events and, when not silent, forwards them to a
// notifier. Safe to call at arbitrary frequency from the initialization
// path; Report never panics.
type Reporter struct {
	log    zerolog.Logger
	silent bool
	notify NotifyFunc
}

// New builds a reporter. notify may be nil.
func New(log zerolog.Logger, silent bool, notify NotifyFunc) *Reporter {
	return &Reporter{log: log, silent: silent, notify: notify}
}

// Report handles one progress event.
func (r *Reporter) Report(fraction float64, message string) {
	defer func() {
		// A misbehaving notifier must not take down the load path.
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("progress notifier panicked")
		}
	}()
	if math.IsNaN(fraction) {
		r.log.Debug().Msg("progress clear")
	} else {
		ev := r.log.Debug().Float64("fraction", fraction)
		if message != "" {
			ev = ev.Str("message", message)
		}
		ev.Msg("progress")
	}
	if r.silent || r.notify == nil {
		return
	}
	r.notify(fraction, message)
}

// Silent reports whether the reporter suppresses user-facing updates.
func (r *Reporter) Silent() bool { return r.silent }
