package session

import "context"

// attemptLocked runs thunk up to maxAttempts times. On a failure that is not
// the final allowed attempt it reloads the resident model to recover from
// corrupted backend state, then retries. The final failure is surfaced to
// the caller after notification. Caller holds mu for the whole run, so no
// other operation can interleave between attempts.
func (s *Session) attemptLocked(ctx context.Context, thunk func() error) error {
	attempts := s.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = thunk(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		s.retries.Add(1)
		retriesTotal.Inc()
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("generation failed, reloading model")
		if rerr := s.handle.Reload(ctx, s.residentID()); rerr != nil {
			// Best-effort state repair; the next attempt decides the outcome.
			s.log.Error().Err(rerr).Msg("recovery reload failed")
		} else {
			s.reloads.Add(1)
			reloadsTotal.WithLabelValues("recovery").Inc()
		}
	}
	gerr := generationError{model: s.residentID(), err: err}
	s.log.Error().Err(gerr).Int("attempts", attempts).Msg("generation failed")
	failuresTotal.WithLabelValues("generate").Inc()
	if !s.silent {
		s.bus.Publish(Event{Name: EventGenerationFailed, ModelID: s.residentID(), Fields: map[string]any{
			"error": gerr.Error(),
		}})
	}
	return gerr
}
