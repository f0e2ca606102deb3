package fixtures

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper stands in for the retry sleeper. It records each requested
// delay and returns immediately unless the context is done.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration

	// OnSleep runs after a delay is recorded and before the context is checked
	OnSleep func()
}

// Sleep has the signature of retry.Sleeper
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	if s.OnSleep != nil {
		s.OnSleep()
	}
	return ctx.Err()
}

// Delays returns a copy of the recorded delays in call order.
func (s *RecordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
