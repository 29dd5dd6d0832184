package mmc

import (
	"github.com/cdemu-project/cdemu-go/internal/audio"
	"github.com/cdemu-project/cdemu-go/internal/sector"
)

// audioStatusByte maps the playback engine's Status to the SCSI
// audio-status byte READ SUBCHANNEL reports.
func audioStatusByte(s audio.Status) AudioStatus {
	switch s {
	case audio.Playing:
		return AudioStatusPlaying
	case audio.Paused:
		return AudioStatusPaused
	case audio.Completed:
		return AudioStatusCompleted
	case audio.Errored:
		return AudioStatusError
	default:
		return AudioStatusNoStatus
	}
}

// readSubChannel implements READ SUBCHANNEL for the two sub-functions
// clients actually use: current position (Q sub-channel, format 0x01) and
// media catalog number (format 0x02). Audio status always reflects the
// engine's present state regardless of which sub-function was requested.
func (d *Dispatcher) readSubChannel(cmd Command) Response {
	if len(cmd.CDB) < 9 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	_, errResp := d.loadedImage()
	if errResp != nil {
		return *errResp
	}

	subq := cmd.CDB[2]&0x40 != 0
	format := cmd.CDB[3]

	status := audioStatusByte(d.Audio.Status())

	hdr := make([]byte, 4)
	hdr[1] = byte(status)

	if !subq {
		return ok(hdr)
	}

	switch format {
	case 0x02:
		data := make([]byte, 20)
		data[0] = 0x02
		mcn, valid := d.mcn()
		if valid {
			data[3] = 0x01
			copy(data[4:17], mcn)
		}
		putLen(hdr, len(data))
		return ok(append(hdr, data...))
	default: // 0x01: current position
		data := make([]byte, 12)
		data[0] = 0x01
		pos := d.Audio.Position()
		msf := sector.LBAToMSF(pos).ToBCDMSF()
		data[2] = 1 // track number (single-track emulation)
		data[3] = 1 // index
		data[8] = msf[0]
		data[9] = msf[1]
		data[10] = msf[2]
		putLen(hdr, len(data))
		return ok(append(hdr, data...))
	}
}

func putLen(hdr []byte, n int) {
	hdr[2] = byte(n >> 8)
	hdr[3] = byte(n)
}

func (d *Dispatcher) mcn() (string, bool) {
	img, errResp := d.loadedImage()
	if errResp != nil {
		return "", false
	}
	return img.MCN()
}
