package mmc

import (
	"sync"

	"github.com/cdemu-project/cdemu-go/internal/disc"
)

// AudioStatus is the audio-play status byte returned by READ SUBCHANNEL
// (and tracked by the PLAY/PAUSE/STOP handlers).
type AudioStatus uint8

const (
	AudioStatusInvalid   AudioStatus = 0x00
	AudioStatusPlaying   AudioStatus = 0x11
	AudioStatusPaused    AudioStatus = 0x12
	AudioStatusCompleted AudioStatus = 0x13
	AudioStatusError     AudioStatus = 0x14
	AudioStatusNoStatus  AudioStatus = 0x15
)

type Device struct {
	mu sync.Mutex

	image  disc.DiscImage
	medium disc.Medium

	trayOpen  bool
	lockCount int
	uaQueue   []unitAttention
	lastSense Sense
	modePages map[byte]*modePageState

	Vendor   string
	Product  string
	Revision string
}

// NewDevice returns a Device with no medium loaded and a power-on unit
// attention already queued, matching a real drive's behavior on first
// command after reset.
func NewDevice(vendor, product, revision string) *Device {
	d := &Device{
		Vendor:    vendor,
		Product:   product,
		Revision:  revision,
		modePages: newModePages(),
	}
	d.queueUA(SenseUnitAttention, PowerOnResetOrBusDeviceResetOccurred)
	return d
}

func (d *Device) queueUA(key SenseKey, code ASCQ) {
	d.uaQueue = append(d.uaQueue, unitAttention{key: key, code: code})
}

// replaceUA clears any queued condition and installs a single one in its
// place, used for power-on/bus-reset which supersedes whatever was pending.
func (d *Device) replaceUA(key SenseKey, code ASCQ) {
	d.uaQueue = []unitAttention{{key: key, code: code}}
}

// takeUA pops the oldest queued unit attention, if any.
func (d *Device) takeUA() (unitAttention, bool) {
	if len(d.uaQueue) == 0 {
		return unitAttention{}, false
	}
	ua := d.uaQueue[0]
	d.uaQueue = d.uaQueue[1:]
	return ua, true
}

// LoadImage installs img as the current medium and queues the
// medium-may-have-changed unit attention a real drive raises after a tray
// close with new media inside.
func (d *Device) LoadImage(img disc.DiscImage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.image = img
	d.medium = img.MediumType()
	d.trayOpen = false
	d.queueUA(SenseUnitAttention, NotReadyToReadyChangeMediumMayHaveChanged)
}

// UnloadImage removes the current medium and queues MEDIUM_NOT_PRESENT for
// the next access, same as a real drive reports after an eject.
func (d *Device) UnloadImage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.image = nil
	d.medium = disc.MediumNone
	d.queueUA(SenseUnitAttention, MediumNotPresent)
}

// Eject opens the tray unless medium removal is currently prevented, in
// which case it reports MEDIUM_REMOVAL_PREVENTED and leaves the tray shut.
func (d *Device) Eject() *scsiError {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lockCount > 0 {
		return &scsiError{key: SenseIllegalRequest, code: MediumRemovalPrevented}
	}
	d.trayOpen = true
	d.image = nil
	d.medium = disc.MediumNone
	d.queueUA(SenseNotReady, MediumNotPresentTrayOpen)
	return nil
}

// Reset replaces the unit attention queue with POWER_ON_RESET_OR_BUS_DEVICE_RESET_OCCURRED,
// matching what a real drive reports after a bus reset or power cycle;
// any previously queued conditions are superseded, not appended to.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replaceUA(SenseUnitAttention, PowerOnResetOrBusDeviceResetOccurred)
}

// SetLock adjusts the persistent-prevent counter for PREVENT ALLOW MEDIUM
// REMOVAL: multiple initiators can each assert a prevent, and removal stays
// blocked until all of them allow it again. A single-initiator emulation
// only ever needs 0 or 1, but the counter keeps the same shape as a real
// jukebox. Prevent increments, allow decrements and never goes negative.
func (d *Device) SetLock(prevent bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prevent {
		d.lockCount++
		return
	}
	if d.lockCount > 0 {
		d.lockCount--
	}
}

// scsiError is the internal representation of a CHECK CONDITION outcome;
// dispatch turns it into a Response with the corresponding Sense.Bytes().
type scsiError struct {
	key  SenseKey
	code ASCQ
}

func (e *scsiError) Error() string { return "scsi: check condition" }

func (e *scsiError) response() Response {
	return checkCondition(e.key, e.code)
}
