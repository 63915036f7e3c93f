package runtime

import "time"

// DefaultFrameInterval approximates a 60Hz display.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameScheduler delivers platform frame callbacks to a Program.
// Frames that arrive while nothing is pending are ignored.
type FrameScheduler interface {
	Frames() <-chan time.Time
	Stop()
}

// TickerScheduler fires frames at a fixed interval.
type TickerScheduler struct {
	ticker *time.Ticker
}

// NewTickerScheduler creates a scheduler firing every interval. A
// non-positive interval uses DefaultFrameInterval.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TickerScheduler{ticker: time.NewTicker(interval)}
}

// Frames implements FrameScheduler.
func (s *TickerScheduler) Frames() <-chan time.Time { return s.ticker.C }

// Stop implements FrameScheduler.
func (s *TickerScheduler) Stop() { s.ticker.Stop() }

// ManualScheduler fires frames only when Tick is called. It is meant for
// tests and tools that step a program deterministically.
type ManualScheduler struct {
	frames chan time.Time
}

// NewManualScheduler creates a scheduler with no frames pending.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{frames: make(chan time.Time)}
}

// Tick delivers one frame. It blocks until the program loop receives it;
// the frame has been processed once any later Do call returns.
func (s *ManualScheduler) Tick() {
	s.frames <- time.Now()
}

// Frames implements FrameScheduler.
func (s *ManualScheduler) Frames() <-chan time.Time { return s.frames }

// Stop implements FrameScheduler.
func (s *ManualScheduler) Stop() {}
