package audio

import "testing"

func TestCaptureSinkRecordsFrames(t *testing.T) {
	s := &CaptureSink{}
	if err := s.Open(CDDAFormat); err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.PlayPCM([]byte{1, 2, 3})
	s.PlayPCM([]byte{4, 5})

	frames := s.Frames()
	if len(frames) != 2 {
		t.Fatalf("len(Frames()) = %d, want 2", len(frames))
	}
	if string(frames[0]) != "\x01\x02\x03" {
		t.Errorf("frames[0] = %v, want {1,2,3}", frames[0])
	}
	if s.Format() != CDDAFormat {
		t.Errorf("Format() = %+v, want %+v", s.Format(), CDDAFormat)
	}
}
