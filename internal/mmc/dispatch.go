// Package mmc emulates the MMC-5 command set a CD/DVD-ROM drive answers:
// CDB decoding, device state (medium, tray, unit attention queue, audio
// status) and per-opcode handlers that turn a disc.DiscImage into SCSI
// responses.
package mmc

import (
	"github.com/cdemu-project/cdemu-go/internal/audio"
	"github.com/cdemu-project/cdemu-go/internal/disc"
)

// Command wraps one incoming CDB together with any data phase payload (used
// by MODE SELECT). The allocation length is read from the CDB itself.
type Command struct {
	CDB  []byte
	Data []byte
}

func (c Command) opcode() byte {
	if len(c.CDB) == 0 {
		return 0xFF
	}
	return c.CDB[0]
}

// u16At/u32At read a big-endian field out of the CDB; SCSI CDBs are
// big-endian throughout.
func (c Command) u16At(off int) uint16 {
	return uint16(c.CDB[off])<<8 | uint16(c.CDB[off+1])
}

func (c Command) u32At(off int) uint32 {
	return uint32(c.CDB[off])<<24 | uint32(c.CDB[off+1])<<16 | uint32(c.CDB[off+2])<<8 | uint32(c.CDB[off+3])
}

// Response is the outcome of handling one Command: either Data with GOOD
// status, or a CHECK CONDITION with an accompanying Sense.
type Response struct {
	Data   []byte
	Status uint8 // 0x00 GOOD, 0x02 CHECK CONDITION
	Sense  Sense
}

func ok(data []byte) Response {
	return Response{Data: data, Status: 0x00}
}

func checkCondition(key SenseKey, code ASCQ) Response {
	return Response{Status: 0x02, Sense: Sense{Key: key, Code: code}}
}

// Dispatcher binds a Device to the disc image it currently has loaded and
// the audio engine driving PLAY AUDIO, and decodes/executes CDBs against
// them.
type Dispatcher struct {
	Device *Device
	Audio  *audio.Engine
}

// NewDispatcher builds a Dispatcher around dev and its audio engine.
func NewDispatcher(dev *Device, eng *audio.Engine) *Dispatcher {
	return &Dispatcher{Device: dev, Audio: eng}
}

// Execute decodes cmd's opcode and routes it to the matching handler,
// draining the device's unit-attention queue first per SPC-3's rule that
// only REQUEST SENSE and INQUIRY may proceed while one is pending, then
// truncating the response to the CDB's allocation length where one
// applies.
func (d *Dispatcher) Execute(cmd Command) Response {
	op := cmd.opcode()

	if op != RequestSense && op != Inquiry {
		d.Device.mu.Lock()
		ua, pending := d.Device.takeUA()
		if pending {
			d.Device.lastSense = Sense{Key: ua.key, Code: ua.code}
		}
		d.Device.mu.Unlock()
		if pending {
			return checkCondition(ua.key, ua.code)
		}
	}

	resp := d.execute(cmd, op)
	if resp.Status == 0x00 {
		if n, ok := allocationLength(cmd, op); ok && n < len(resp.Data) {
			resp.Data = resp.Data[:n]
		}
	}
	return resp
}

// allocationLength reports the CDB's allocation length field for opcodes
// that carry one as a fixed field, as opposed to READ(10)/READ CD, whose
// transfer length instead multiplies a fixed block size and so needs no
// separate truncation.
func allocationLength(cmd Command, op byte) (int, bool) {
	switch op {
	case Inquiry, RequestSense, ModeSense6:
		if len(cmd.CDB) < 5 {
			return 0, false
		}
		return int(cmd.CDB[4]), true
	case ModeSense10, ReadTOC, ReadSubChannel, GetConfiguration, GetEventStatusNotification:
		if len(cmd.CDB) < 9 {
			return 0, false
		}
		return int(cmd.CDB[7])<<8 | int(cmd.CDB[8]), true
	case MechanismStatus, ReadDiscStructure, ReportKey:
		if len(cmd.CDB) < 10 {
			return 0, false
		}
		return int(cmd.CDB[8])<<8 | int(cmd.CDB[9]), true
	default:
		return 0, false
	}
}

func (d *Dispatcher) execute(cmd Command, op byte) Response {
	switch op {
	case TestUnitReady:
		return d.testUnitReady(cmd)
	case RequestSense:
		return d.requestSense(cmd)
	case Inquiry:
		return d.inquiry(cmd)
	case StartStopUnit:
		return d.startStopUnit(cmd)
	case PreventAllowMediumRemoval:
		return d.preventAllowMediumRemoval(cmd)
	case ModeSense6, ModeSense10:
		return d.modeSense(cmd)
	case ModeSelect6, ModeSelect10:
		return d.modeSelect(cmd)
	case ReadCapacity:
		return d.readCapacity(cmd)
	case Read10:
		if len(cmd.CDB) < 10 {
			return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
		}
		return d.read(cmd, cmd.u32At(2), uint32(cmd.u16At(7)))
	case Read12:
		if len(cmd.CDB) < 12 {
			return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
		}
		return d.read(cmd, cmd.u32At(2), cmd.u32At(6))
	case ReadCD:
		return d.readCD(cmd)
	case ReadHeader:
		return d.readHeader(cmd)
	case ReadTOC:
		return d.readTOC(cmd)
	case ReadSubChannel:
		return d.readSubChannel(cmd)
	case ReadDiscStructure:
		return d.readDiscStructure(cmd)
	case GetConfiguration:
		return d.getConfiguration(cmd)
	case GetEventStatusNotification:
		return d.getEventStatusNotification(cmd)
	case MechanismStatus:
		return d.mechanismStatus(cmd)
	case PlayAudio10:
		if len(cmd.CDB) < 10 {
			return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
		}
		return d.playAudio(cmd, cmd.u32At(2), uint32(cmd.u16At(7)))
	case PlayAudio12:
		if len(cmd.CDB) < 12 {
			return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
		}
		return d.playAudio(cmd, cmd.u32At(2), cmd.u32At(6))
	case PauseResume:
		return d.pauseResume(cmd)
	case StopPlayScan:
		return d.stopPlayScan(cmd)
	case ReportKey:
		return d.reportKey(cmd)
	case SendKey:
		return d.sendKey(cmd)
	default:
		return checkCondition(SenseIllegalRequest, InvalidCommandOperationCode)
	}
}

// loadedImage returns the current DiscImage, or a NOT READY check condition
// if no medium is loaded.
func (d *Dispatcher) loadedImage() (disc.DiscImage, *Response) {
	d.Device.mu.Lock()
	img := d.Device.image
	trayOpen := d.Device.trayOpen
	d.Device.mu.Unlock()
	if img == nil {
		code := MediumNotPresent
		if trayOpen {
			code = MediumNotPresentTrayOpen
		}
		r := checkCondition(SenseNotReady, code)
		return nil, &r
	}
	return img, nil
}
