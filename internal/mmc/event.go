package mmc

// getConfiguration honors RT (CDB byte 1, bits 0-1: all/current/one) and
// the Starting Feature Number (CDB bytes 2-3) rather than always dumping
// every feature this drive knows about.
func (d *Dispatcher) getConfiguration(cmd Command) Response {
	if len(cmd.CDB) < 4 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	rt := cmd.CDB[1] & 0x03
	if rt == 0x03 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	return ok(d.Device.GetConfiguration(rt, cmd.u16At(2)))
}

// getEventStatusNotification answers polling for media and operational
// change events (MMC-5 §6.9.5.1); only the "media" event class is
// emulated, since that's the only one any known client actually requests.
func (d *Dispatcher) getEventStatusNotification(cmd Command) Response {
	if len(cmd.CDB) < 5 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	requested := cmd.CDB[4]
	const mediaEventClass = 1 << 4
	if requested&mediaEventClass == 0 {
		// No supported class requested: report "no event classes
		// supported" header with NEA unset, empty descriptor.
		return ok([]byte{0x00, 0x04, 0x00, 0x00})
	}

	d.Device.mu.Lock()
	hasMedia := d.Device.image != nil
	trayOpen := d.Device.trayOpen
	d.Device.mu.Unlock()

	buf := make([]byte, 8)
	buf[1] = 4 // additional length
	buf[2] = 0x04
	buf[3] = mediaEventClass // supported event classes: media

	buf[4] = 0x02 // event code: new media / media removal
	if hasMedia {
		buf[4] = 0x02 // NewMedia
		buf[5] = 0x02 // media present
	} else {
		buf[4] = 0x03 // MediaRemoval
		buf[5] = 0x00
	}
	if trayOpen {
		buf[5] |= 0x01 // tray open
	}
	return ok(buf)
}

// mechanismStatus reports a single-slot tray mechanism always holding disc
// 0, with no changer in the loop.
func (d *Dispatcher) mechanismStatus(cmd Command) Response {
	buf := make([]byte, 8)
	buf[0] = 0x00 // fault=0, changer state=ready, mechanism state=idle
	buf[7] = 0    // no slots beyond the single tray reported here
	return ok(buf)
}
