package mmc

import "testing"

// getConfigurationCDB builds a 10-byte GET CONFIGURATION CDB with RT,
// Starting Feature Number and a generous allocation length (bytes 7-8) so
// Execute's allocation-length truncation doesn't clip the very data these
// tests inspect.
func getConfigurationCDB(rt byte, startCode uint16) []byte {
	cdb := make([]byte, 10)
	cdb[0] = GetConfiguration
	cdb[1] = rt
	cdb[2] = byte(startCode >> 8)
	cdb[3] = byte(startCode)
	cdb[7] = 0xFF
	cdb[8] = 0xFF
	return cdb
}

func TestGetConfigurationRT(t *testing.T) {
	d := newTestDispatcher()
	drainUA(d)

	all := d.Execute(Command{CDB: getConfigurationCDB(0x00, 0)})
	if all.Status != 0x00 {
		t.Fatalf("RT=all status = %#x, want GOOD", all.Status)
	}

	current := d.Execute(Command{CDB: getConfigurationCDB(0x01, 0)})
	if current.Status != 0x00 {
		t.Fatalf("RT=current status = %#x, want GOOD", current.Status)
	}
	if len(current.Data) >= len(all.Data) {
		t.Errorf("RT=current len = %d, want fewer descriptors than RT=all's %d", len(current.Data), len(all.Data))
	}

	one := d.Execute(Command{CDB: getConfigurationCDB(0x02, 0x0001)})
	if one.Status != 0x00 {
		t.Fatalf("RT=one status = %#x, want GOOD", one.Status)
	}
	if len(one.Data) != 8+4+8 {
		t.Fatalf("RT=one len = %d, want %d (header + Core feature descriptor)", len(one.Data), 8+4+8)
	}
	if one.Data[8] != 0x00 || one.Data[9] != 0x01 {
		t.Errorf("RT=one feature code = % X, want 00 01", one.Data[8:10])
	}

	reserved := d.Execute(Command{CDB: getConfigurationCDB(0x03, 0)})
	if reserved.Status != 0x02 {
		t.Fatalf("RT=reserved status = %#x, want CHECK CONDITION", reserved.Status)
	}
}
