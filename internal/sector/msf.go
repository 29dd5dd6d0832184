package sector

// FramesPerSecond is the CD-DA frame rate (75 sectors/sec).
const FramesPerSecond = 75

// Pregap is the 2-second (150-sector) lead-in offset between LBA 0 and MSF
// 00:00:00 / 00:02:00.
const Pregap = 150

// MSF is a Minutes:Seconds:Frames address, each field stored as binary (not
// BCD) once decoded off the wire; ToBCD/FromBCD convert at the wire boundary.
type MSF struct {
	Min, Sec, Frame uint8
}

// LBAToMSF converts a logical block address to its MSF representation,
// honoring the 150-sector pregap offset.
func LBAToMSF(lba int32) MSF {
	v := lba + Pregap
	if v < 0 {
		v = 0
	}
	return MSF{
		Min:   uint8(v / (60 * FramesPerSecond)),
		Sec:   uint8((v / FramesPerSecond) % 60),
		Frame: uint8(v % FramesPerSecond),
	}
}

// MSFToLBA is the inverse of LBAToMSF.
func MSFToLBA(m MSF) int32 {
	return (int32(m.Min)*60+int32(m.Sec))*FramesPerSecond + int32(m.Frame) - Pregap
}

// ToBCD encodes a decimal byte (0-99) in packed BCD, as used in sector
// headers and the Q-subchannel.
func ToBCD(v uint8) uint8 {
	return ((v / 10) << 4) | (v % 10)
}

// FromBCD decodes a packed-BCD byte back to its decimal value.
func FromBCD(v uint8) uint8 {
	return (v>>4)*10 + (v & 0x0F)
}

// ToBCDMSF converts an MSF to its on-wire BCD-encoded form.
func (m MSF) ToBCDMSF() [3]byte {
	return [3]byte{ToBCD(m.Min), ToBCD(m.Sec), ToBCD(m.Frame)}
}

// FromBCDMSF decodes a BCD-encoded MSF triple.
func FromBCDMSF(b [3]byte) MSF {
	return MSF{Min: FromBCD(b[0]), Sec: FromBCD(b[1]), Frame: FromBCD(b[2])}
}
