package mmc

// SenseKey is the top-level SCSI sense classification (byte 2 of fixed
// sense data).
type SenseKey uint8

const (
	SenseNoSense        SenseKey = 0x0
	SenseNotReady       SenseKey = 0x2
	SenseMediumError    SenseKey = 0x3
	SenseIllegalRequest SenseKey = 0x5
	SenseUnitAttention  SenseKey = 0x6
	SenseDataProtect    SenseKey = 0x7
	SenseAbortedCommand SenseKey = 0xB
)

// ASCQ bundles the additional sense code and qualifier as one 16-bit value
// (ASC in the high byte), matching the hex constants in the reference
// daemon's sense-constants header.
type ASCQ uint16

const (
	NoAdditionalSenseInformation ASCQ = 0x0000
	LogicalBlockAddressOutOfRange ASCQ = 0x2100
	InvalidCommandOperationCode ASCQ = 0x2000
	InvalidFieldInCDB ASCQ = 0x2400
	InvalidFieldInParameterList ASCQ = 0x2600
	ParameterListLengthError ASCQ = 0x1A00
	WriteProtected ASCQ = 0x2700
	MediumNotPresent ASCQ = 0x3A00
	MediumNotPresentTrayClosed ASCQ = 0x3A01
	MediumNotPresentTrayOpen ASCQ = 0x3A02
	MediumRemovalPrevented ASCQ = 0x5302
	NotReadyToReadyChangeMediumMayHaveChanged ASCQ = 0x2800
	PowerOnResetOrBusDeviceResetOccurred ASCQ = 0x2900
	CannotExecuteSinceHostCannotDisconnect ASCQ = 0x2B00
	CopyProtectionKeyExchangeFailureAuthenticationFailure ASCQ = 0x6F00
)

// Sense is a decoded fixed-format sense block (SPC-3 §4.5.3), 18 bytes on
// the wire: response code 0x70, key in byte 2, ASC/ASCQ in bytes 12-13,
// additional sense length in byte 7.
type Sense struct {
	Key  SenseKey
	Code ASCQ
}

// Bytes renders s as the 18-byte fixed-format sense buffer the MMC
// dispatcher returns alongside CHECK CONDITION status.
func (s Sense) Bytes() []byte {
	buf := make([]byte, 18)
	buf[0] = 0x70
	buf[2] = byte(s.Key)
	buf[7] = 10
	buf[12] = byte(s.Code >> 8)
	buf[13] = byte(s.Code & 0xff)
	return buf
}

// unitAttention describes one queued unit-attention condition; the device
// state machine drains these in FIFO order ahead of any command other than
// REQUEST SENSE and INQUIRY.
type unitAttention struct {
	key  SenseKey
	code ASCQ
}
