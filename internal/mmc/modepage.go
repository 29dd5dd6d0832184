package mmc

import "encoding/binary"

// Mode page codes this drive reports. 0x0E (CD Audio Control) and 0x2A
// (CD/DVD Capabilities and Mechanical Status) are the two pages a generic
// MMC client actually inspects; 0x3F requests all of them.
const (
	modePageAudioControl = 0x0E
	modePageCapabilities = 0x2A
	modePageAll          = 0x3F
)

// modePageState holds one mode page's default image, its live current
// image (what MODE SENSE page control 00b "current" reports and MODE
// SELECT writes into) and the changeable-bits mask page control 01b
// reports: wherever a mask bit is set, MODE SELECT may overwrite that bit
// of current; every other bit stays fixed at its default value forever.
type modePageState struct {
	def        []byte
	current    []byte
	changeable []byte
}

func newModePageState(def, changeable []byte) *modePageState {
	return &modePageState{def: def, current: append([]byte(nil), def...), changeable: changeable}
}

// apply merges data into the page's current image through the changeable
// mask. It fails if data isn't exactly the page's length.
func (p *modePageState) apply(data []byte) bool {
	if len(data) != len(p.current) {
		return false
	}
	for i := range p.current {
		p.current[i] = (p.current[i] &^ p.changeable[i]) | (data[i] & p.changeable[i])
	}
	return true
}

// audioControlPageDefault builds mode page 0x0E's power-on image: both
// output channels at full volume, immediate-transition audio playback.
func audioControlPageDefault() []byte {
	buf := make([]byte, 16)
	buf[0] = modePageAudioControl
	buf[1] = 14  // page length
	buf[3] = 0x04 // immediate playback
	buf[8] = 0x01  // port 0 selection: channel 0
	buf[9] = 0xFF  // port 0 volume: max
	buf[10] = 0x02 // port 1 selection: channel 1
	buf[11] = 0xFF // port 1 volume: max
	return buf
}

// audioControlChangeable marks the per-port channel-selection and volume
// bytes as the only writable fields, the same bytes a real drive's CD
// Audio Control page lets an initiator reprogram.
func audioControlChangeable() []byte {
	buf := make([]byte, 16)
	buf[8] = 0x0F
	buf[9] = 0xFF
	buf[10] = 0x0F
	buf[11] = 0xFF
	return buf
}

// capabilitiesPageDefault builds mode page 0x2A, advertising CD-DA and
// CD-ROM read support plus a tray-loading mechanism; writable media
// capabilities are left unset since this daemon never emulates a recorder.
func capabilitiesPageDefault() []byte {
	buf := make([]byte, 20)
	buf[0] = modePageCapabilities
	buf[1] = 18   // page length
	buf[2] = 0x03 // CD-R/RW read
	buf[3] = 0x00 // no write support
	buf[4] = 0x71 // audio play, composite, digital port 1/2
	buf[5] = 0x03 // lock supported, can lock, prevent/allow jumper
	buf[6] = 0x29 // eject supported, tray type loading mechanism
	binary.BigEndian.PutUint16(buf[8:10], 706)  // max read speed (KB/s), arbitrary plausible value
	binary.BigEndian.PutUint16(buf[12:14], 2)   // number of volume levels
	binary.BigEndian.PutUint16(buf[14:16], 256) // buffer size (KB)
	binary.BigEndian.PutUint16(buf[18:20], 706) // current read speed
	return buf
}

// capabilitiesChangeable: the Capabilities & Mechanical Status page is
// entirely drive-reported; nothing in it is settable by an initiator.
func capabilitiesChangeable() []byte {
	return make([]byte, 20)
}

// newModePages builds the registry of mode pages this drive answers MODE
// SENSE/MODE SELECT for, keyed by page code, mirroring the teacher's
// code-keyed row-table abstraction (there: UID/column; here: mode page
// code). Each Device gets its own registry since MODE SELECT mutates it.
func newModePages() map[byte]*modePageState {
	return map[byte]*modePageState{
		modePageAudioControl: newModePageState(audioControlPageDefault(), audioControlChangeable()),
		modePageCapabilities: newModePageState(capabilitiesPageDefault(), capabilitiesChangeable()),
	}
}

// modeSenseImage returns the bytes MODE SENSE should report for code under
// page control pc: 00b current, 01b changeable mask, 10b default, 11b
// saved. This emulation keeps no values beyond the current/default pair,
// so saved aliases default, the same as a drive with no saved-parameters
// support.
func (d *Device) modeSenseImage(code, pc byte) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.modePages[code]
	if !ok {
		return nil, false
	}
	switch pc {
	case 0x01:
		return append([]byte(nil), p.changeable...), true
	case 0x02, 0x03:
		return append([]byte(nil), p.def...), true
	default:
		return append([]byte(nil), p.current...), true
	}
}

// modeSelectApply writes data into page code's current image through its
// changeable mask, so a later MODE SENSE (page control 00b) reflects it.
func (d *Device) modeSelectApply(code byte, data []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.modePages[code]
	if !ok {
		return false
	}
	return p.apply(data)
}

func (d *Dispatcher) modeSense(cmd Command) Response {
	if len(cmd.CDB) < 3 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	pageCode := cmd.CDB[2] & 0x3F
	pc := (cmd.CDB[2] >> 6) & 0x03
	tenByte := cmd.opcode() == ModeSense10

	var pages []byte
	if pageCode == modePageAll {
		for _, code := range []byte{modePageAudioControl, modePageCapabilities} {
			page, _ := d.Device.modeSenseImage(code, pc)
			pages = append(pages, page...)
		}
	} else if page, known := d.Device.modeSenseImage(pageCode, pc); known {
		pages = page
	} else {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}

	var hdr []byte
	if tenByte {
		hdr = make([]byte, 8)
		dataLen := uint16(len(pages) + 6)
		hdr[0] = byte(dataLen >> 8)
		hdr[1] = byte(dataLen)
		hdr[2] = 0x05 // medium type: CD-ROM
	} else {
		hdr = make([]byte, 4)
		hdr[0] = byte(len(pages) + 3)
		hdr[1] = 0x05
	}

	return ok(append(hdr, pages...))
}

// modeSelect parses the MODE SELECT parameter list (header, optional block
// descriptor, one or more page-data structures) and applies each page
// through modeSelectApply's changeable mask, so a value set here is
// reflected by the next MODE SENSE with page control 00b "current".
func (d *Dispatcher) modeSelect(cmd Command) Response {
	hdrLen := 4
	if cmd.opcode() == ModeSelect10 {
		hdrLen = 8
	}
	if len(cmd.Data) < hdrLen {
		return checkCondition(SenseIllegalRequest, ParameterListLengthError)
	}
	if len(cmd.Data) == hdrLen {
		return ok(nil)
	}

	var blockDescLen int
	if hdrLen == 4 {
		blockDescLen = int(cmd.Data[3])
	} else {
		blockDescLen = int(cmd.Data[6])<<8 | int(cmd.Data[7])
	}
	off := hdrLen + blockDescLen
	if off > len(cmd.Data) {
		return checkCondition(SenseIllegalRequest, InvalidFieldInParameterList)
	}

	for off < len(cmd.Data) {
		if off+2 > len(cmd.Data) {
			return checkCondition(SenseIllegalRequest, InvalidFieldInParameterList)
		}
		pageCode := cmd.Data[off] & 0x3F
		pageLen := int(cmd.Data[off+1])
		total := 2 + pageLen
		if off+total > len(cmd.Data) {
			return checkCondition(SenseIllegalRequest, InvalidFieldInParameterList)
		}
		if !d.Device.modeSelectApply(pageCode, cmd.Data[off:off+total]) {
			return checkCondition(SenseIllegalRequest, InvalidFieldInParameterList)
		}
		off += total
	}
	return ok(nil)
}
