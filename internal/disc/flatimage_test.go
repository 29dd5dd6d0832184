package disc

import (
	"bytes"
	"testing"

	"github.com/cdemu-project/cdemu-go/internal/sector"
)

func TestFlatImageGetSector(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, sector.UserDataMode1*4)
	tracks := []Track{{Number: 1, Type: sector.TypeMode1, StartLBA: 0, EndLBA: 4}}
	img := NewFlatImageFromReaderAt(bytes.NewReader(data), MediumCDROM, tracks)

	s, err := img.GetSector(2)
	if err != nil {
		t.Fatalf("GetSector: %v", err)
	}
	if !bytes.Equal(s.UserData(), bytes.Repeat([]byte{0xAB}, sector.UserDataMode1)) {
		t.Errorf("GetSector(2) returned unexpected user data")
	}
	if !sector.VerifyLEC(s) {
		t.Errorf("GetSector(2) produced a sector that fails VerifyLEC")
	}
}

func TestFlatImageOutOfRange(t *testing.T) {
	tracks := []Track{{Number: 1, Type: sector.TypeMode1, StartLBA: 0, EndLBA: 4}}
	img := NewFlatImageFromReaderAt(bytes.NewReader(nil), MediumCDROM, tracks)

	if _, err := img.GetSector(10); err != ErrOutOfRange {
		t.Errorf("GetSector(10) = %v, want ErrOutOfRange", err)
	}
}

func TestFlatImageTrackStart(t *testing.T) {
	tracks := []Track{
		{Number: 1, Type: sector.TypeMode1, StartLBA: 0, EndLBA: 100},
		{Number: 2, Type: sector.TypeAudio, StartLBA: 100, EndLBA: 500},
	}
	img := NewFlatImageFromReaderAt(bytes.NewReader(nil), MediumCDROM, tracks)

	if got := img.TrackStart(2); got != 100 {
		t.Errorf("TrackStart(2) = %d, want 100", got)
	}
	if got := img.NumberOfTracks(); got != 2 {
		t.Errorf("NumberOfTracks() = %d, want 2", got)
	}
}
