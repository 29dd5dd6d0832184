// Package audio emulates a drive's CD-DA playback engine: a single
// producer goroutine that walks a sector range and hands PCM frames to an
// AudioSink at the disc's natural 1/75s-per-sector pace.
package audio

import (
	"sync"
	"time"

	"github.com/cdemu-project/cdemu-go/internal/disc"
	"github.com/cdemu-project/cdemu-go/internal/sector"
)

// Status mirrors the drive's audio-status byte lifecycle: NoStatus at
// reset, Playing while the producer goroutine runs, Paused when stopped by
// request, and Completed/Errored once the goroutine exits on its own.
type Status int

const (
	NoStatus Status = iota
	Playing
	Paused
	Completed
	Errored
)

// Format is the PCM format every sink receives: 16-bit little-endian
// stereo at 44100Hz, the only format Red Book audio defines.
type Format struct {
	Bits     int
	Channels int
	Rate     int
}

// CDDAFormat is the fixed format every AudioSink must accept.
var CDDAFormat = Format{Bits: 16, Channels: 2, Rate: 44100}

// Sink receives decoded PCM sector payloads during playback. A real
// implementation might open ALSA/PulseAudio; tests substitute a recording
// stub.
type Sink interface {
	Open(format Format) error
	PlayPCM(samples []byte) error
	Close() error
}

// sectorPeriod is how long one CD-DA sector's audio takes to play back:
// 1/75th of a second, the Red Book's frame rate.
const sectorPeriod = time.Second / 75

// Engine drives one drive's PLAY AUDIO session. Start/Pause/Resume/Stop
// serialize on the engine's own mutex, which guards the status/position
// fields against the concurrent producer goroutine. The engine does not
// share or take the MMC device's mutex: callers invoke it without holding
// any device lock, and the producer reads sectors without one.
type Engine struct {
	mu     sync.Mutex
	status Status
	cur    int32
	end    int32

	newSink func() Sink
	sink    Sink

	done chan struct{}
}

// NewEngine builds an Engine that opens a fresh Sink (via newSink) each
// time playback starts, matching the reference daemon's "don't open the
// device until we actually play" behavior.
func NewEngine(newSink func() Sink) *Engine {
	return &Engine{status: NoStatus, newSink: newSink}
}

// join waits for a previous producer goroutine to exit, if one is still
// running. It must be called with e.mu held: it releases the lock while
// waiting so the producer (which needs the lock to notice a status change
// and return) can make progress, then reacquires it before returning.
func (e *Engine) join() {
	done := e.done
	if done == nil {
		return
	}
	e.mu.Unlock()
	<-done
	e.mu.Lock()
	e.done = nil
}

// Status returns the engine's current status, reaping the producer
// goroutine first if it finished on its own (Completed or Errored).
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == Completed || e.status == Errored {
		e.join()
	}
	return e.status
}

// Position returns the sector the engine is currently at (or was last at,
// once stopped).
func (e *Engine) Position() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur
}

// Start begins playback over [start, end] inclusive, reading sectors from
// img. It fails if playback is already underway or paused; the caller must
// Stop first.
func (e *Engine) Start(img disc.DiscImage, start, end int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == Playing || e.status == Paused {
		return false
	}
	e.join()

	e.cur = start
	e.end = end
	e.status = Playing

	sink := e.newSink()
	e.sink = sink
	done := make(chan struct{})
	e.done = done
	go e.run(img, sink, done)
	return true
}

// Resume restarts playback from the current position; valid only while
// Paused.
func (e *Engine) Resume(img disc.DiscImage) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Paused {
		return false
	}
	e.join()

	e.status = Playing
	sink := e.newSink()
	e.sink = sink
	done := make(chan struct{})
	e.done = done
	go e.run(img, sink, done)
	return true
}

// Pause stops the producer goroutine without losing position; valid only
// while Playing.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Playing {
		return false
	}
	e.status = Paused
	e.join()
	return true
}

// Stop halts playback entirely, discarding position; valid while Playing
// or Paused.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Playing && e.status != Paused {
		return false
	}
	e.status = NoStatus
	e.join()
	return true
}

// run is the producer goroutine: it walks sectors from cur to end, handing
// each audio sector's frame to the sink at the sector's natural playback
// period, and stops as soon as e.status is no longer Playing (set by
// Pause/Stop from outside) or it runs out of range or hits a non-audio
// sector.
func (e *Engine) run(img disc.DiscImage, sink Sink, done chan struct{}) {
	defer close(done)

	if err := sink.Open(CDDAFormat); err != nil {
		e.mu.Lock()
		e.status = Errored
		e.mu.Unlock()
		return
	}
	defer sink.Close()

	ticker := time.NewTicker(sectorPeriod)
	defer ticker.Stop()

	for {
		e.mu.Lock()
		if e.status != Playing {
			e.mu.Unlock()
			return
		}
		if e.cur > e.end {
			e.status = Completed
			e.mu.Unlock()
			return
		}
		lba := e.cur
		e.cur++
		e.mu.Unlock()

		s, err := img.GetSector(lba)
		if err != nil || s.Type != sector.TypeAudio {
			e.mu.Lock()
			e.status = Errored
			e.mu.Unlock()
			return
		}

		if err := sink.PlayPCM(s.UserData()); err != nil {
			e.mu.Lock()
			e.status = Errored
			e.mu.Unlock()
			return
		}

		<-ticker.C
	}
}
