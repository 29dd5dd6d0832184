package sector

// eccFLUT, eccBLUT and edcLUT are the standard GF(256)/CRC-32 lookup tables
// used by every CD-ROM L-EC implementation descended from the classic ECM
// encoder: forward and backward Galois tables for the (26,43)/(43,26)
// Reed-Solomon P/Q parity, and a byte-driven CRC-32 table for EDC.
var (
	eccFLUT [256]byte
	eccBLUT [256]byte
	edcLUT  [256]uint32
)

func init() {
	for i := 0; i < 256; i++ {
		mask := 0
		if i&0x80 != 0 {
			mask = 0x11D
		}
		j := byte((i << 1) ^ mask)
		eccFLUT[i] = j
		eccBLUT[byte(i)^j] = byte(i)

		edc := uint32(i)
		for k := 0; k < 8; k++ {
			if edc&1 != 0 {
				edc = (edc >> 1) ^ 0xD8018001
			} else {
				edc >>= 1
			}
		}
		edcLUT[i] = edc
	}
}

// edcCompute folds src into the running EDC accumulator edc, LSB-first
// (reflected), table-driven over the CRC-32/CD-ROM generator 0x8001801B
// (reversed representation 0xD8018001).
func edcCompute(edc uint32, src []byte) uint32 {
	for _, b := range src {
		edc = (edc >> 8) ^ edcLUT[(edc^uint32(b))&0xff]
	}
	return edc
}

// eccCompute writes the P or Q parity bytes for one interleave pass into
// dest, following the classic major/minor stride walk over src.
func eccCompute(src []byte, majorCount, minorCount, majorMult, minorInc int, dest []byte) {
	size := majorCount * minorCount
	for major := 0; major < majorCount; major++ {
		index := (major>>1)*majorMult + (major & 1)
		var eccA, eccB byte
		for minor := 0; minor < minorCount; minor++ {
			temp := src[index]
			index += minorInc
			if index >= size {
				index -= size
			}
			eccA ^= temp
			eccB ^= temp
			eccA = eccFLUT[eccA]
		}
		eccA = eccBLUT[eccFLUT[eccA]^eccB]
		dest[major] = eccA
		dest[major+majorCount] = eccA ^ eccB
	}
}

// eccWritePQ computes the L-EC parity for a Mode 1 / Mode 2 Form 1 sector.
// header is the offset of the 4-byte MSF+mode header within the sector
// frame (always 12); the P-protected region is the 2064 bytes from header
// through the reserved zero bytes that precede parity, and the
// Q-protected region additionally covers the 172 P-parity bytes just
// written, per the Red Book's L-EC layering. pDest (172 bytes) and qDest
// (104 bytes) must point at the sector's own P/Q parity regions so later
// reads of the frame see the final bytes in place.
func eccWritePQ(frame []byte, header int, pDest, qDest []byte) {
	pRegion := frame[header : header+2064]
	eccCompute(pRegion, 86, 24, 2, 86, pDest)

	qRegion := frame[header : header+2064+172]
	eccCompute(qRegion, 52, 43, 88, 52, qDest)
}

// QCRC16 computes the Q-subchannel CRC: X^16+X^12+X^5+1, MSB-first,
// initialized to 0, not inverted.
func QCRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
