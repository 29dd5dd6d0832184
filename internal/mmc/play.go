package mmc

func (d *Dispatcher) playAudio(cmd Command, lba uint32, count uint32) Response {
	img, errResp := d.loadedImage()
	if errResp != nil {
		return *errResp
	}
	if count == 0 {
		return ok(nil)
	}

	start := int32(lba)
	end := start + int32(count) - 1
	if !d.Audio.Start(img, start, end) {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	return ok(nil)
}

// pauseResume implements the PAUSE/RESUME command: bit 0 of byte 8 selects
// resume (1) or pause (0).
func (d *Dispatcher) pauseResume(cmd Command) Response {
	if len(cmd.CDB) < 9 {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	resume := cmd.CDB[8]&0x01 != 0

	var succeeded bool
	if resume {
		img, errResp := d.loadedImage()
		if errResp != nil {
			return *errResp
		}
		succeeded = d.Audio.Resume(img)
	} else {
		succeeded = d.Audio.Pause()
	}
	if !succeeded {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	return ok(nil)
}

func (d *Dispatcher) stopPlayScan(cmd Command) Response {
	if !d.Audio.Stop() {
		return checkCondition(SenseIllegalRequest, InvalidFieldInCDB)
	}
	return ok(nil)
}
