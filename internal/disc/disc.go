// Package disc defines the DiscImage trait the MMC dispatcher reads
// sectors and disc metadata through, plus a flat-image reference backend.
package disc

import (
	"errors"

	"github.com/cdemu-project/cdemu-go/internal/sector"
)

// Medium identifies the disc profile a loaded image advertises through
// GET CONFIGURATION and MODE SENSE.
type Medium int

const (
	MediumNone Medium = iota
	MediumCDROM
	MediumCDR
	MediumDVDROM
	MediumDVDPlusR
)

var (
	// ErrNoMedium reports that no image is loaded. FlatImage never returns
	// it; the MMC handlers check for a loaded image themselves and answer
	// NOT_READY/MEDIUM_NOT_PRESENT without going through this error.
	ErrNoMedium = errors.New("disc: no medium loaded")
	// ErrOutOfRange is returned when lba falls outside the image's track
	// layout; handlers translate it into ILLEGAL_REQUEST/LBA_OUT_OF_RANGE.
	ErrOutOfRange = errors.New("disc: lba out of range")
	// ErrUnsupportedStructure is returned by ReadDiscStructure for a
	// layer/format combination the image cannot produce.
	ErrUnsupportedStructure = errors.New("disc: unsupported disc structure request")
)

// DiscImage is the external collaborator the MMC dispatcher reads sector
// and track-layout data through. A backend might be a flat ISO/BIN image,
// a multi-session CCD/MDS image, or a synthetic image built for tests.
type DiscImage interface {
	GetSector(lba int32) (*sector.Sector, error)
	MediumType() Medium
	ReadDiscStructure(layer, kind uint8) ([]byte, error)
	DPMDataForSector(lba int32) (angle, density float64, ok bool)
	LayoutStartSector() int32
	NumberOfSessions() int
	NumberOfTracks() int
	TrackStart(n int) int32
	MCN() (string, bool)
	// Capacity returns one past the highest addressable LBA, i.e. the
	// total sector count READ CAPACITY reports against.
	Capacity() int32
}

// Track describes one entry of a flat image's track list: a contiguous
// run of sectors of a single type, with an optional data offset within
// the backing file.
type Track struct {
	Number    int
	Type      sector.Type
	StartLBA  int32
	EndLBA    int32 // exclusive
	FileStart int64 // byte offset into the backing file of StartLBA
}

func (t Track) contains(lba int32) bool {
	return lba >= t.StartLBA && lba < t.EndLBA
}
