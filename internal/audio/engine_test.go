package audio

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/cdemu-project/cdemu-go/internal/disc"
	"github.com/cdemu-project/cdemu-go/internal/sector"
)

type recordingSink struct {
	mu     sync.Mutex
	opened bool
	frames int
}

func (s *recordingSink) Open(Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = true
	return nil
}

func (s *recordingSink) PlayPCM(samples []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func newAudioTestImage(t *testing.T, n int32) disc.DiscImage {
	t.Helper()
	data := bytes.Repeat([]byte{0x00}, int(n)*sector.FrameSize)
	tracks := []disc.Track{{Number: 1, Type: sector.TypeAudio, StartLBA: 0, EndLBA: n}}
	return disc.NewFlatImageFromReaderAt(bytes.NewReader(data), disc.MediumCDROM, tracks)
}

func TestEngineStartRunsToCompletion(t *testing.T) {
	sink := &recordingSink{}
	eng := NewEngine(func() Sink { return sink })
	img := newAudioTestImage(t, 3)

	if !eng.Start(img, 0, 2) {
		t.Fatal("Start returned false")
	}

	for eng.Status() != Completed {
		time.Sleep(time.Millisecond)
	}
	if got := sink.count(); got != 3 {
		t.Errorf("frames played = %d, want 3", got)
	}
	if !sink.opened {
		t.Error("sink was never opened")
	}
}

func TestEngineStartWhilePlayingFails(t *testing.T) {
	eng := NewEngine(func() Sink { return &recordingSink{} })
	img := newAudioTestImage(t, 100)

	if !eng.Start(img, 0, 99) {
		t.Fatal("first Start returned false")
	}
	if eng.Start(img, 0, 99) {
		t.Error("second Start while playing should fail")
	}
	eng.Stop()
}

func TestEnginePauseResume(t *testing.T) {
	eng := NewEngine(func() Sink { return &recordingSink{} })
	img := newAudioTestImage(t, 100)

	eng.Start(img, 0, 99)
	if !eng.Pause() {
		t.Fatal("Pause returned false")
	}
	if eng.Status() != Paused {
		t.Fatalf("status = %v, want Paused", eng.Status())
	}
	if !eng.Resume(img) {
		t.Fatal("Resume returned false")
	}
	if eng.Status() != Playing {
		t.Fatalf("status = %v, want Playing", eng.Status())
	}
	eng.Stop()
	if eng.Status() != NoStatus {
		t.Fatalf("status = %v, want NoStatus", eng.Status())
	}
}

func TestEnginePauseWhenNotPlayingFails(t *testing.T) {
	eng := NewEngine(func() Sink { return &recordingSink{} })
	if eng.Pause() {
		t.Error("Pause with no playback underway should fail")
	}
}

func TestEngineErrorsOnNonAudioSector(t *testing.T) {
	eng := NewEngine(func() Sink { return &recordingSink{} })
	data := bytes.Repeat([]byte{0xAB}, sector.UserDataMode1*2)
	tracks := []disc.Track{{Number: 1, Type: sector.TypeMode1, StartLBA: 0, EndLBA: 2}}
	img := disc.NewFlatImageFromReaderAt(bytes.NewReader(data), disc.MediumCDROM, tracks)

	eng.Start(img, 0, 1)
	for {
		s := eng.Status()
		if s == Errored || s == Completed {
			if s != Errored {
				t.Errorf("status = %v, want Errored", s)
			}
			break
		}
		time.Sleep(time.Millisecond)
	}
}
