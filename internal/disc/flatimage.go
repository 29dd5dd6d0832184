package disc

import (
	"fmt"
	"io"
	"os"

	"github.com/cdemu-project/cdemu-go/internal/sector"
)

// FlatImage is the reference DiscImage backend: a single backing file (an
// ISO/BIN-style data track, or a raw audio dump) read through io.ReaderAt,
// described by an explicit track list the caller supplies at load time.
// It supports exactly one session.
type FlatImage struct {
	r      io.ReaderAt
	closer io.Closer
	tracks []Track
	medium Medium
	mcn    string
}

// OpenFlatImage opens path and wraps it as a FlatImage with the given track
// layout. tracks must be sorted by StartLBA and contiguous; the caller
// supplies this layout (the orchestrator's image loader builds it), so no
// attempt is made to infer it from file contents.
func OpenFlatImage(path string, medium Medium, tracks []Track) (*FlatImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("disc: open %s: %w", path, err)
	}
	return &FlatImage{r: f, closer: f, tracks: tracks, medium: medium}, nil
}

// NewFlatImageFromReaderAt wraps an already-open reader, useful for tests
// that synthesize an image in memory via bytes.NewReader.
func NewFlatImageFromReaderAt(r io.ReaderAt, medium Medium, tracks []Track) *FlatImage {
	return &FlatImage{r: r, tracks: tracks, medium: medium}
}

func (f *FlatImage) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

func (f *FlatImage) trackFor(lba int32) (Track, bool) {
	for _, t := range f.tracks {
		if t.contains(lba) {
			return t, true
		}
	}
	return Track{}, false
}

// GetSector reads and encodes the sector at lba, synthesizing its EDC/ECC
// via the sector codec. The returned frame is not scrambled.
func (f *FlatImage) GetSector(lba int32) (*sector.Sector, error) {
	t, ok := f.trackFor(lba)
	if !ok {
		return nil, ErrOutOfRange
	}

	userLen := userDataLen(t.Type)
	off := t.FileStart + int64(lba-t.StartLBA)*int64(userLen)
	buf := make([]byte, userLen)
	if _, err := f.r.ReadAt(buf, off); err != nil && err != io.EOF {
		return nil, fmt.Errorf("disc: reading sector %d: %w", lba, err)
	}

	return sector.Encode(t.Type, lba, buf)
}

func userDataLen(t sector.Type) int {
	switch t {
	case sector.TypeAudio:
		return sector.FrameSize
	case sector.TypeMode1:
		return sector.UserDataMode1
	case sector.TypeMode2Formless:
		return sector.UserDataFormless
	case sector.TypeMode2Form1:
		return 8 + sector.UserDataMode2
	case sector.TypeMode2Form2:
		return 8 + sector.UserDataForm2
	default:
		return sector.UserDataMode1
	}
}

func (f *FlatImage) MediumType() Medium { return f.medium }

// ReadDiscStructure supports only layer 0 / format 0 (physical format
// information), enough for a DVD-ROM profile to answer READ DISC STRUCTURE
// probes; anything else is unsupported for a flat image.
func (f *FlatImage) ReadDiscStructure(layer, kind uint8) ([]byte, error) {
	if layer != 0 || kind != 0 {
		return nil, ErrUnsupportedStructure
	}
	buf := make([]byte, 2+4+17)
	lastLBA := f.LayoutStartSector()
	if n := f.lastLBA(); n > lastLBA {
		lastLBA = n
	}
	buf[4] = byte(lastLBA >> 24)
	buf[5] = byte(lastLBA >> 16)
	buf[6] = byte(lastLBA >> 8)
	buf[7] = byte(lastLBA)
	return buf, nil
}

// Capacity returns one past the highest LBA any track in the layout
// covers.
func (f *FlatImage) Capacity() int32 {
	return f.lastLBA() + 1
}

func (f *FlatImage) lastLBA() int32 {
	var last int32
	for _, t := range f.tracks {
		if t.EndLBA > last {
			last = t.EndLBA
		}
	}
	return last - 1
}

// DPMDataForSector reports no Disc Performance Map emulation data; a flat
// image has no recorded seek-timing profile.
func (f *FlatImage) DPMDataForSector(lba int32) (angle, density float64, ok bool) {
	return 0, 0, false
}

func (f *FlatImage) LayoutStartSector() int32 {
	if len(f.tracks) == 0 {
		return 0
	}
	return f.tracks[0].StartLBA
}

func (f *FlatImage) NumberOfSessions() int { return 1 }

func (f *FlatImage) NumberOfTracks() int { return len(f.tracks) }

func (f *FlatImage) TrackStart(n int) int32 {
	for _, t := range f.tracks {
		if t.Number == n {
			return t.StartLBA
		}
	}
	return -1
}

func (f *FlatImage) MCN() (string, bool) {
	return f.mcn, f.mcn != ""
}

// SetMCN records a media catalog number for READ SUBCHANNEL to report; not
// part of the DiscImage interface since it's a load-time configuration
// detail rather than something the dispatcher queries through the trait.
func (f *FlatImage) SetMCN(mcn string) {
	f.mcn = mcn
}

var _ DiscImage = (*FlatImage)(nil)
