package mmc

import "github.com/cdemu-project/cdemu-go/internal/disc"

// Profile codes reported in the Profile List feature (MMC-5 §5.3.1) and as
// the current-profile field of GET CONFIGURATION's header.
const (
	ProfileNone     = 0x0000
	ProfileCDROM    = 0x0008
	ProfileCDR      = 0x0009
	ProfileDVDROM   = 0x0010
	ProfileDVDPlusR = 0x001B
)

// profileForMedium maps a loaded disc's Medium to the MMC profile code GET
// CONFIGURATION should report as current.
func profileForMedium(m disc.Medium) uint16 {
	switch m {
	case disc.MediumCDROM:
		return ProfileCDROM
	case disc.MediumCDR:
		return ProfileCDR
	case disc.MediumDVDROM:
		return ProfileDVDROM
	case disc.MediumDVDPlusR:
		return ProfileDVDPlusR
	default:
		return ProfileNone
	}
}

// featureHeader packs the common 4-byte prefix (code, cur/per/ver, length)
// every feature descriptor starts with.
func featureHeader(code uint16, cur, per bool, length byte) []byte {
	b := make([]byte, 4)
	b[0] = byte(code >> 8)
	b[1] = byte(code)
	var flags byte
	if cur {
		flags |= 0x01
	}
	if per {
		flags |= 0x02
	}
	b[2] = flags
	b[3] = length
	return b
}

// profileListFeature builds Feature 0x0000 (Profile List), one 4-byte entry
// per supported profile with the "cur" bit set on whichever matches the
// drive's present medium.
func profileListFeature(current uint16) []byte {
	profiles := []uint16{ProfileCDROM, ProfileCDR, ProfileDVDROM, ProfileDVDPlusR}
	buf := featureHeader(0x0000, true, true, byte(len(profiles)*4))
	for _, p := range profiles {
		entry := make([]byte, 4)
		entry[0] = byte(p >> 8)
		entry[1] = byte(p)
		if p == current {
			entry[2] = 0x01
		}
		buf = append(buf, entry...)
	}
	return buf
}

// coreFeature builds Feature 0x0001 (Core): interface type SCSI (0x00000001)
// plus the dbevent and inq2 bits, both unset since this emulation doesn't
// raise asynchronous device-busy events or extend standard INQUIRY data.
func coreFeature() []byte {
	buf := featureHeader(0x0001, true, true, 8)
	buf = append(buf, 0x00, 0x00, 0x00, 0x01) // interface = SCSI
	buf = append(buf, 0x00, 0x00, 0x00, 0x00)
	return buf
}

// removableMediumFeature builds Feature 0x0003: tray loading mechanism,
// ejectable, lockable.
func removableMediumFeature(locked bool) []byte {
	buf := featureHeader(0x0003, true, true, 4)
	var flags byte
	flags |= 0x01 << 5 // eject
	if locked {
		flags |= 0x01 // lock
	}
	buf = append(buf, flags, 0x00, 0x00, 0x00)
	return buf
}

// randomReadableFeature builds Feature 0x0010 with a fixed 2048-byte
// logical block size, matching every medium this daemon emulates.
func randomReadableFeature() []byte {
	buf := featureHeader(0x0010, true, true, 8)
	buf = append(buf, 0x00, 0x00, 0x08, 0x00) // block_size = 2048
	buf = append(buf, 0x00, 0x01)             // blocking = 1
	buf = append(buf, 0x00, 0x00)
	return buf
}

// cdReadFeature builds Feature 0x001E, current only when a CD medium
// (CD-ROM or CD-R) is loaded.
func cdReadFeature(cur bool) []byte {
	buf := featureHeader(0x001E, cur, true, 4)
	buf = append(buf, 0x00, 0x00, 0x00, 0x00)
	return buf
}

// dvdReadFeature builds Feature 0x001F, current only when a DVD medium is
// loaded.
func dvdReadFeature(cur bool) []byte {
	buf := featureHeader(0x001F, cur, true, 4)
	buf = append(buf, 0x00, 0x00, 0x00, 0x00)
	return buf
}

// featureDescriptor pairs one assembled feature descriptor with its code
// and whether its "current" bit is set, so GetConfiguration can filter by
// RT and Starting Feature Number without re-deriving either from the raw
// bytes.
type featureDescriptor struct {
	code  uint16
	cur   bool
	bytes []byte
}

// features builds every feature descriptor this drive ever reports, in
// ascending code order as MMC-5 requires.
func (d *Device) features() (_ []featureDescriptor, current uint16) {
	d.mu.Lock()
	medium := d.medium
	locked := d.lockCount > 0
	d.mu.Unlock()

	current = profileForMedium(medium)
	isCD := medium == disc.MediumCDROM || medium == disc.MediumCDR
	isDVD := medium == disc.MediumDVDROM || medium == disc.MediumDVDPlusR

	return []featureDescriptor{
		{code: 0x0000, cur: true, bytes: profileListFeature(current)},
		{code: 0x0001, cur: true, bytes: coreFeature()},
		{code: 0x0003, cur: true, bytes: removableMediumFeature(locked)},
		{code: 0x0010, cur: true, bytes: randomReadableFeature()},
		{code: 0x001E, cur: isCD, bytes: cdReadFeature(isCD)},
		{code: 0x001F, cur: isDVD, bytes: dvdReadFeature(isDVD)},
	}, current
}

// GetConfiguration assembles the GET CONFIGURATION response: an 8-byte
// header (data length, reserved, current profile) followed by the feature
// descriptors RT and startCode select. RT 0x00 reports every feature from
// startCode up, 0x01 only those currently active, 0x02 just the one feature
// named by startCode (the Starting Feature Number), matching MMC-5 GET
// CONFIGURATION semantics.
func (d *Device) GetConfiguration(rt byte, startCode uint16) []byte {
	all, current := d.features()

	var features []byte
	for _, f := range all {
		switch rt {
		case 0x01:
			if !f.cur || f.code < startCode {
				continue
			}
		case 0x02:
			if f.code != startCode {
				continue
			}
		default:
			if f.code < startCode {
				continue
			}
		}
		features = append(features, f.bytes...)
	}

	header := make([]byte, 8)
	dataLen := uint32(4 + len(features))
	header[0] = byte(dataLen >> 24)
	header[1] = byte(dataLen >> 16)
	header[2] = byte(dataLen >> 8)
	header[3] = byte(dataLen)
	header[6] = byte(current >> 8)
	header[7] = byte(current)

	return append(header, features...)
}
