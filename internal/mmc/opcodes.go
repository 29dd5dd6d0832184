package mmc

// SCSI/MMC operation codes this dispatcher handles. Named the way the rest
// of the corpus names them (PascalCase, no Opcode suffix), values per
// SPC-3 and MMC-5.
const (
	TestUnitReady              = 0x00
	RequestSense               = 0x03
	Inquiry                    = 0x12
	ModeSelect6                = 0x15
	ModeSense6                 = 0x1A
	StartStopUnit              = 0x1B
	PreventAllowMediumRemoval  = 0x1E
	ReadCapacity               = 0x25
	Read10                     = 0x28
	PlayAudio10                = 0x45
	ReadSubChannel             = 0x42
	ReadTOC                    = 0x43
	ReadHeader                 = 0x44
	PauseResume                = 0x4B
	StopPlayScan               = 0x4E
	PlayAudio12                = 0xA5
	Read12                     = 0xA8
	SendKey                    = 0xA3
	ReportKey                  = 0xA4
	ReadDiscStructure          = 0xAD
	ModeSelect10               = 0x55
	ModeSense10                = 0x5A
	GetConfiguration           = 0x46
	GetEventStatusNotification = 0x4A
	MechanismStatus            = 0xBD
	ReadCD                     = 0xBE
)
