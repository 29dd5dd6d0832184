// Package orchestrator owns the set of active virtual drives: for each one,
// the VHBA transport carrying SCSI commands, the MMC dispatcher answering
// them, and the audio engine PLAY AUDIO delegates to. It also exposes the
// ControlChannel surface external tools use to load/unload images and query
// drive state.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cdemu-project/cdemu-go/internal/audio"
	"github.com/cdemu-project/cdemu-go/internal/disc"
	"github.com/cdemu-project/cdemu-go/internal/mmc"
	"github.com/cdemu-project/cdemu-go/internal/sector"
	"github.com/cdemu-project/cdemu-go/internal/vhba"
)

// Drive is one virtual optical drive: a VHBA transport, the MMC dispatcher
// serving it, and the state (filenames of the loaded image) a control
// request needs to report back.
type Drive struct {
	ID int

	Transport  vhba.Transport
	Dispatcher *mmc.Dispatcher

	log *logrus.Entry

	mu        sync.Mutex
	filenames []string
	closer    io.Closer
}

// NewDrive builds a Drive around an already-open transport, wiring a fresh
// Device and audio Engine for it.
func NewDrive(id int, transport vhba.Transport, vendor, product, revision string, newSink func() audio.Sink) *Drive {
	dev := mmc.NewDevice(vendor, product, revision)
	eng := audio.NewEngine(newSink)
	return &Drive{
		ID:         id,
		Transport:  transport,
		Dispatcher: mmc.NewDispatcher(dev, eng),
		log:        logrus.WithField("drive", id),
	}
}

// Run pumps requests off the transport and feeds them to the MMC dispatcher
// until ctx is cancelled or the transport reports an error (typically
// because it was closed).
func (d *Drive) Run(ctx context.Context) {
	for {
		req, data, err := d.Transport.NextRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.WithError(err).Warn("vhba: next request")
			return
		}

		cmd := mmc.Command{CDB: req.CDB[:req.CDBLen], Data: data}
		resp := d.Dispatcher.Execute(cmd)

		payload := resp.Data
		if resp.Status != 0 {
			payload = resp.Sense.Bytes()
		}
		out := &vhba.Response{
			Metatag: req.Metatag,
			Status:  uint32(resp.Status),
			DataLen: uint32(len(payload)),
		}
		if err := d.Transport.Respond(ctx, out, payload); err != nil {
			d.log.WithError(err).Warn("vhba: responding")
			return
		}
	}
}

// LoadImage opens filenames[0] as a flat image and installs it as this
// drive's medium. Only the single-filename flat-image reference provider is
// supported, matching the scope this repo actually ships; multi-file
// CUE/CCD-style layouts are rejected.
func (d *Drive) LoadImage(filenames []string) error {
	if len(filenames) != 1 {
		return fmt.Errorf("orchestrator: drive %d: flat image loader takes exactly one filename, got %d", d.ID, len(filenames))
	}

	img, err := openFlatImage(filenames[0])
	if err != nil {
		return fmt.Errorf("orchestrator: drive %d: %w", d.ID, err)
	}

	d.mu.Lock()
	if d.closer != nil {
		d.closer.Close()
	}
	d.closer = img
	d.filenames = filenames
	d.mu.Unlock()

	d.Dispatcher.Device.LoadImage(img)
	return nil
}

// UnloadImage removes whatever medium is currently loaded, closing its
// backing file.
func (d *Drive) UnloadImage() error {
	d.mu.Lock()
	if d.closer != nil {
		d.closer.Close()
		d.closer = nil
	}
	d.filenames = nil
	d.mu.Unlock()

	d.Dispatcher.Device.UnloadImage()
	return nil
}

func (d *Drive) loadedFilenames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.filenames...)
}

// openFlatImage treats path as a single Mode 1 data track of 2048-byte
// sectors spanning the whole file, the "plain flat image reader" this repo
// ships as its one concrete DiscImage provider (see SPEC_FULL.md §1).
func openFlatImage(path string) (*disc.FlatImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	n := int32(info.Size() / sector.UserDataMode1)
	if n == 0 {
		return nil, fmt.Errorf("empty or undersized image: %s", path)
	}
	tracks := []disc.Track{{Number: 1, Type: sector.TypeMode1, StartLBA: 0, EndLBA: n}}
	return disc.OpenFlatImage(path, disc.MediumCDROM, tracks)
}
