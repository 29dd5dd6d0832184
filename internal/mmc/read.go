package mmc

import (
	"encoding/binary"

	"github.com/cdemu-project/cdemu-go/internal/disc"
	"github.com/cdemu-project/cdemu-go/internal/sector"
)

// blockSize is the logical block size reported by READ CAPACITY and used
// to size READ(10)/READ(12) transfers; every medium this daemon emulates
// uses 2048-byte user-data blocks.
const blockSize = 2048

func (d *Dispatcher) readCapacity(cmd Command) Response {
	img, errResp := d.loadedImage()
	if errResp != nil {
		return *errResp
	}

	lastLBA := img.Capacity() - 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(lastLBA))
	binary.BigEndian.PutUint32(buf[4:8], blockSize)
	return ok(buf)
}

func (d *Dispatcher) read(cmd Command, lba uint32, count uint32) Response {
	img, errResp := d.loadedImage()
	if errResp != nil {
		return *errResp
	}

	buf := make([]byte, 0, int(count)*blockSize)
	for i := uint32(0); i < count; i++ {
		s, err := img.GetSector(int32(lba) + int32(i))
		if err != nil {
			if err == disc.ErrOutOfRange {
				return checkCondition(SenseIllegalRequest, LogicalBlockAddressOutOfRange)
			}
			return checkCondition(SenseMediumError, NoAdditionalSenseInformation)
		}
		buf = append(buf, s.UserData()...)
	}
	return ok(buf)
}

// readCD implements READ CD (opcode 0xBE): unlike READ(10)/READ(12), the
// initiator selects exactly which regions of the raw 2352-byte frame come
// back (the Main Channel Selection Bits in CDB byte 9) and which
// sub-channel format rides along (CDB byte 10). sector.Encode always fills
// the whole frame, so producing a region nobody stored on disk is just
// slicing the frame Encode already built; the sub-channel is synthesized
// the same way READ SUBCHANNEL's current-position data is.
func (d *Dispatcher) readCD(cmd Command) Response {
	if len(cmd.CDB) < 12 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	img, errResp := d.loadedImage()
	if errResp != nil {
		return *errResp
	}

	lba := cmd.u32At(2)
	count := uint32(cmd.CDB[6])<<16 | uint32(cmd.CDB[7])<<8 | uint32(cmd.CDB[8])

	var mask sector.Region
	if cmd.CDB[9]&0x80 != 0 {
		mask |= sector.RegionSync
	}
	switch (cmd.CDB[9] >> 5) & 0x03 {
	case 0x01:
		mask |= sector.RegionHeader
	case 0x02:
		mask |= sector.RegionSubheader
	case 0x03:
		mask |= sector.RegionHeader | sector.RegionSubheader
	}
	if cmd.CDB[9]&0x10 != 0 {
		mask |= sector.RegionUserData
	}
	if cmd.CDB[9]&0x08 != 0 {
		mask |= sector.RegionEDCECC
	}

	subSel := cmd.CDB[10] & 0x07
	switch subSel {
	case 0x00, 0x01, 0x02:
	default:
		// Corrected R-W (0x04) and reserved selections have no backing data
		// for a flat image with no stored raw subchannel.
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}

	buf := make([]byte, 0, int(count)*blockSize)
	for i := uint32(0); i < count; i++ {
		cur := int32(lba) + int32(i)
		s, err := img.GetSector(cur)
		if err != nil {
			if err == disc.ErrOutOfRange {
				return checkCondition(SenseIllegalRequest, LogicalBlockAddressOutOfRange)
			}
			return checkCondition(SenseMediumError, NoAdditionalSenseInformation)
		}
		buf = append(buf, s.RegionBytes(mask)...)

		switch subSel {
		case 0x01:
			track := trackForLBA(img, cur)
			q := synthesizeQ(cur, img.TrackStart(track), byte(track))
			var deint [sector.SubchannelSize]byte
			base := sector.ChannelQ * (sector.SubchannelSize / sector.NumChannels)
			copy(deint[base:base+12], q[:])
			inter := sector.InterleavePW(&deint)
			buf = append(buf, inter[:]...)
		case 0x02:
			track := trackForLBA(img, cur)
			q := synthesizeQ(cur, img.TrackStart(track), byte(track))
			buf = append(buf, q[:]...)
		}
	}
	return ok(buf)
}

// trackForLBA returns the track containing lba: the highest-numbered
// track whose start address doesn't exceed it.
func trackForLBA(img disc.DiscImage, lba int32) int {
	n := img.NumberOfTracks()
	track := 1
	for i := 1; i <= n; i++ {
		if img.TrackStart(i) <= lba {
			track = i
		}
	}
	return track
}

// synthesizeQ builds the 12-byte Q-subchannel block a READ CD sub-channel
// request needs: control/ADR, track number, index, relative and absolute
// MSF, and a trailing QCRC16 over the first 10 bytes, the same layout a
// real Q sub-channel carries on disc.
func synthesizeQ(lba, trackStart int32, track byte) [12]byte {
	var q [12]byte
	q[0] = 0x14 // control/ADR: data track, digital copy permitted
	q[1] = track
	q[2] = 1 // index
	rel := sector.LBAToMSF(lba - trackStart - sector.Pregap).ToBCDMSF()
	q[3], q[4], q[5] = rel[0], rel[1], rel[2]
	abs := sector.LBAToMSF(lba).ToBCDMSF()
	q[7], q[8], q[9] = abs[0], abs[1], abs[2]
	crc := sector.QCRC16(q[:10])
	q[10] = byte(crc >> 8)
	q[11] = byte(crc)
	return q
}

// readHeader reports the addressed sector's mode byte and its 4-byte header
// (MSF address plus mode) (MMC's READ HEADER, a legacy audio-era command
// still probed by some clients to determine track type).
func (d *Dispatcher) readHeader(cmd Command) Response {
	if len(cmd.CDB) < 6 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	img, errResp := d.loadedImage()
	if errResp != nil {
		return *errResp
	}

	lba := int32(cmd.u32At(2))
	s, err := img.GetSector(lba)
	if err != nil {
		return checkCondition(SenseIllegalRequest, LogicalBlockAddressOutOfRange)
	}

	buf := make([]byte, 8)
	buf[0] = s.Frame[15] // mode byte
	copy(buf[4:8], s.Frame[12:16])
	return ok(buf)
}

func (d *Dispatcher) readDiscStructure(cmd Command) Response {
	if len(cmd.CDB) < 8 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	img, errResp := d.loadedImage()
	if errResp != nil {
		return *errResp
	}

	layer := cmd.CDB[6]
	format := cmd.CDB[7]
	data, err := img.ReadDiscStructure(layer, format)
	if err != nil {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	return ok(data)
}
