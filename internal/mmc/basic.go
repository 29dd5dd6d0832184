package mmc

// fixedString left-justifies s and pads it to length with spaces, or
// truncates it, matching how SCSI INQUIRY fields are conventionally
// formatted.
func fixedString(s string, length int) []byte {
	b := make([]byte, length)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

func (d *Dispatcher) testUnitReady(cmd Command) Response {
	if _, errResp := d.loadedImage(); errResp != nil {
		return *errResp
	}
	return ok(nil)
}

func (d *Dispatcher) requestSense(cmd Command) Response {
	d.Device.mu.Lock()
	s := d.Device.lastSense
	d.Device.lastSense = Sense{}
	d.Device.mu.Unlock()
	return ok(s.Bytes())
}

// inquiry answers a standard INQUIRY (EVPD=0, page code 0); vital product
// data pages aren't emulated since nothing in this daemon's client set
// queries them.
func (d *Dispatcher) inquiry(cmd Command) Response {
	if len(cmd.CDB) < 2 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	if cmd.CDB[1]&0x01 != 0 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}

	buf := make([]byte, 36)
	buf[0] = 0x05 // peripheral device type: CD-ROM
	buf[1] = 0x80 // removable medium
	buf[2] = 0x02 // SCSI-2 compliant
	buf[3] = 0x02 // response data format
	buf[4] = 31   // additional length
	copy(buf[8:16], fixedString(d.Device.Vendor, 8))
	copy(buf[16:32], fixedString(d.Device.Product, 16))
	copy(buf[32:36], fixedString(d.Device.Revision, 4))
	return ok(buf)
}

func (d *Dispatcher) startStopUnit(cmd Command) Response {
	if len(cmd.CDB) < 5 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	loej := cmd.CDB[4]&0x02 != 0
	start := cmd.CDB[4]&0x01 != 0

	if loej && !start {
		if err := d.Device.Eject(); err != nil {
			return err.response()
		}
	}
	return ok(nil)
}

func (d *Dispatcher) preventAllowMediumRemoval(cmd Command) Response {
	if len(cmd.CDB) < 5 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	prevent := cmd.CDB[4]&0x01 != 0
	d.Device.SetLock(prevent)
	return ok(nil)
}
