package mmc

import (
	"github.com/cdemu-project/cdemu-go/internal/disc"
	"github.com/cdemu-project/cdemu-go/internal/sector"
)

// readTOC implements READ TOC/PMA/ATIP formats 0 (standard TOC), 1 (session
// info) and 2 (raw, point-based full TOC); formats 3-5 (ATIP, CD-TEXT, PMA)
// have no data behind them for a plain flat image (there's no recorder
// session, no embedded CD-TEXT packs, no recordable-media PMA) and are
// rejected, see DESIGN.md.
func (d *Dispatcher) readTOC(cmd Command) Response {
	if len(cmd.CDB) < 9 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	img, errResp := d.loadedImage()
	if errResp != nil {
		return *errResp
	}

	msf := cmd.CDB[1]&0x02 != 0
	format := cmd.CDB[2] & 0x0F

	switch format {
	case 0x00:
		return d.readTOCFormat0(img, msf)
	case 0x01:
		return d.readTOCFormat1(img, msf)
	case 0x02:
		return d.readTOCFormat2(img)
	default:
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
}

// readTOCFormat0 answers the standard TOC: a header plus one descriptor per
// track, plus a synthetic lead-out descriptor (track number 0xAA) giving
// the disc's total length.
func (d *Dispatcher) readTOCFormat0(img disc.DiscImage, msf bool) Response {
	n := img.NumberOfTracks()
	data := make([]byte, 0, (n+1)*8)

	firstTrack := byte(1)
	lastTrack := byte(n)

	for i := 1; i <= n; i++ {
		start := img.TrackStart(i)
		data = append(data, trackDescriptor(byte(i), start, msf)...)
	}
	data = append(data, trackDescriptor(0xAA, img.Capacity(), msf)...)

	dataLen := uint16(2 + len(data))
	hdr := []byte{byte(dataLen >> 8), byte(dataLen), firstTrack, lastTrack}
	return ok(append(hdr, data...))
}

// readTOCFormat1 answers session info: every image this daemon loads has
// exactly one session (see disc.FlatImage.NumberOfSessions), so the single
// descriptor it reports is always that session's first track.
func (d *Dispatcher) readTOCFormat1(img disc.DiscImage, msf bool) Response {
	sessions := byte(img.NumberOfSessions())
	data := trackDescriptor(1, img.TrackStart(1), msf)

	dataLen := uint16(2 + len(data))
	hdr := []byte{byte(dataLen >> 8), byte(dataLen), sessions, sessions}
	return ok(append(hdr, data...))
}

// readTOCFormat2 answers the raw, point-based full TOC: one descriptor per
// track plus the first-track (0xA0), last-track (0xA1) and lead-out (0xA2)
// pointer descriptors every mastering/ripping client looks for. Addresses
// in this format are always MSF-encoded, independent of the CDB's MSF bit.
func (d *Dispatcher) readTOCFormat2(img disc.DiscImage) Response {
	n := img.NumberOfTracks()
	data := make([]byte, 0, (n+3)*11)

	data = append(data, pointDescriptor(1, 0xA0, 1, 0x00, 0)...)
	for i := 1; i <= n; i++ {
		m := sector.LBAToMSF(img.TrackStart(i)).ToBCDMSF()
		data = append(data, pointDescriptor(1, byte(i), m[0], m[1], m[2])...)
	}
	data = append(data, pointDescriptor(1, 0xA1, byte(n), 0, 0)...)
	leadOut := sector.LBAToMSF(img.Capacity()).ToBCDMSF()
	data = append(data, pointDescriptor(1, 0xA2, leadOut[0], leadOut[1], leadOut[2])...)

	dataLen := uint16(2 + len(data))
	hdr := []byte{byte(dataLen >> 8), byte(dataLen), 1, 1}
	return ok(append(hdr, data...))
}

func trackDescriptor(track byte, lba int32, msf bool) []byte {
	buf := make([]byte, 8)
	buf[1] = 0x14 // ADR/control: data track, digital copy permitted
	buf[2] = track
	if msf {
		m := sector.LBAToMSF(lba).ToBCDMSF()
		buf[4], buf[5], buf[6] = 0, m[0], m[1]
		buf[7] = m[2]
	} else {
		buf[4] = byte(lba >> 24)
		buf[5] = byte(lba >> 16)
		buf[6] = byte(lba >> 8)
		buf[7] = byte(lba)
	}
	return buf
}

// pointDescriptor builds one 11-byte format-2 TOC descriptor: session
// number, a data-track ADR/control byte, the POINT this descriptor names
// (a real track number or one of the 0xA0/0xA1/0xA2 pointers), and a
// BCD-MSF P-address whose meaning depends on POINT (track start address for
// a real track, first/last track number for 0xA0/0xA1, lead-out start for
// 0xA2).
func pointDescriptor(session, point, pmin, psec, pframe byte) []byte {
	buf := make([]byte, 11)
	buf[0] = session
	buf[1] = 0x14
	buf[3] = point
	buf[8] = pmin
	buf[9] = psec
	buf[10] = pframe
	return buf
}
