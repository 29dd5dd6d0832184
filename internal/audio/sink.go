package audio

import "sync"

// NullSink discards PCM data without ever touching a real audio device; the
// timing-only backend used whenever the daemon runs without one wired in.
type NullSink struct{}

func (NullSink) Open(Format) error    { return nil }
func (NullSink) PlayPCM([]byte) error { return nil }
func (NullSink) Close() error         { return nil }

// CaptureSink records every PCM payload handed to it instead of playing it,
// for tests that check what would have played.
type CaptureSink struct {
	mu     sync.Mutex
	format Format
	frames [][]byte
}

func (s *CaptureSink) Open(f Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = f
	return nil
}

func (s *CaptureSink) PlayPCM(samples []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, append([]byte(nil), samples...))
	return nil
}

func (s *CaptureSink) Close() error { return nil }

// Frames returns every PCM payload captured so far, in playback order.
func (s *CaptureSink) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

// Format returns the format passed to the most recent Open call.
func (s *CaptureSink) Format() Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}
