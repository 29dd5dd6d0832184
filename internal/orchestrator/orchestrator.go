package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cdemu-project/cdemu-go/internal/audio"
	"github.com/cdemu-project/cdemu-go/internal/vhba"
)

// Orchestrator owns the vector of active drives and is itself a
// ControlChannel: it dispatches load/unload/enumerate/query requests to the
// drive they name. Built with options the way the teacher's ControlSession
// is, since both describe "owns a set of child resources, closed together".
type Orchestrator struct {
	mu     sync.Mutex
	drives []*Drive
	wg     sync.WaitGroup
	cancel context.CancelFunc

	newSink func() audio.Sink
	vendor  string
	product string
	rev     string
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithSink overrides the audio Sink factory every drive's Engine uses.
// Defaults to a null sink (timing-only, no actual output) if unset.
func WithSink(newSink func() audio.Sink) Option {
	return func(o *Orchestrator) { o.newSink = newSink }
}

// WithIdentity overrides the INQUIRY vendor/product/revision strings every
// drive reports. Defaults to "CDEmu"/"Virt. CD/DVD-ROM"/"1.10".
func WithIdentity(vendor, product, revision string) Option {
	return func(o *Orchestrator) {
		o.vendor = vendor
		o.product = product
		o.rev = revision
	}
}

// New builds an empty Orchestrator ready to have drives attached via
// AddDrive.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		newSink: func() audio.Sink { return audio.NullSink{} },
		vendor:  "CDEmu",
		product: "Virt. CD/DVD-ROM",
		rev:     "1.10",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AddDrive registers transport as a new drive and starts its MMC loop in
// the background, under the Orchestrator's shared lifetime context. ctx
// must come from a prior call to Start.
func (o *Orchestrator) AddDrive(ctx context.Context, transport vhba.Transport) *Drive {
	o.mu.Lock()
	id := len(o.drives)
	d := NewDrive(id, transport, o.vendor, o.product, o.rev, o.newSink)
	o.drives = append(o.drives, d)
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		d.Run(ctx)
	}()
	return d
}

// Start returns a context that Close will cancel, stopping every drive's
// MMC loop. Call it once before attaching drives with AddDrive.
func (o *Orchestrator) Start() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	return ctx
}

// Close stops every drive's MMC loop, waits for them to exit, and closes
// every transport and loaded image.
func (o *Orchestrator) Close() error {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	o.mu.Lock()
	drives := o.drives
	o.mu.Unlock()

	var firstErr error
	for _, d := range drives {
		d.UnloadImage()
		if err := d.Transport.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (o *Orchestrator) drive(id int) (*Drive, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id < 0 || id >= len(o.drives) {
		return nil, fmt.Errorf("orchestrator: no such drive: %d", id)
	}
	return o.drives[id], nil
}

// EnumerateDrives implements ControlChannel.
func (o *Orchestrator) EnumerateDrives() ([]DriveStatus, error) {
	o.mu.Lock()
	drives := append([]*Drive(nil), o.drives...)
	o.mu.Unlock()

	statuses := make([]DriveStatus, len(drives))
	for i, d := range drives {
		names := d.loadedFilenames()
		statuses[i] = DriveStatus{ID: d.ID, Loaded: len(names) > 0, Filenames: names}
	}
	return statuses, nil
}

// LoadImage implements ControlChannel. options.DeviceID, when set,
// overrides the INQUIRY product string this one drive reports.
func (o *Orchestrator) LoadImage(driveID int, filenames []string, options LoadOptions) error {
	d, err := o.drive(driveID)
	if err != nil {
		return err
	}
	if options.DeviceID != "" {
		d.Dispatcher.Device.Product = options.DeviceID
	}
	logrus.WithFields(logrus.Fields{"drive": driveID, "files": filenames}).Info("loading image")
	return d.LoadImage(filenames)
}

// UnloadImage implements ControlChannel.
func (o *Orchestrator) UnloadImage(driveID int) error {
	d, err := o.drive(driveID)
	if err != nil {
		return err
	}
	logrus.WithField("drive", driveID).Info("unloading image")
	return d.UnloadImage()
}

// GetOption implements ControlChannel. Only "device-id" is backed by real
// state (the drive's reported Product string); everything else is
// unsupported since no other per-load option carries any emulated effect.
func (o *Orchestrator) GetOption(driveID int, name string) (string, error) {
	d, err := o.drive(driveID)
	if err != nil {
		return "", err
	}
	switch name {
	case "device-id":
		return d.Dispatcher.Device.Product, nil
	default:
		return "", fmt.Errorf("orchestrator: unknown option %q", name)
	}
}

// SetOption implements ControlChannel.
func (o *Orchestrator) SetOption(driveID int, name, value string) error {
	d, err := o.drive(driveID)
	if err != nil {
		return err
	}
	switch name {
	case "device-id":
		d.Dispatcher.Device.Product = value
		return nil
	default:
		return fmt.Errorf("orchestrator: unknown option %q", name)
	}
}

var _ ControlChannel = (*Orchestrator)(nil)
