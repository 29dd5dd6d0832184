package mmc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cdemu-project/cdemu-go/internal/disc"
	"github.com/cdemu-project/cdemu-go/internal/sector"
)

// TestReadCDRegionSynthesis checks the property that READ CD's region
// selection must satisfy for any Main Channel Selection Bits: the
// concatenation of the regions asked for matches the same regions sliced
// out of a sector freshly built by sector.Encode from the same user data.
func TestReadCDRegionSynthesis(t *testing.T) {
	data := make([]byte, 17*sector.UserDataMode1)
	copy(data[16*sector.UserDataMode1:], []byte("\x01CD001\x01\x00"))
	tracks := []disc.Track{{Number: 1, Type: sector.TypeMode1, StartLBA: 0, EndLBA: 350000}}
	img := disc.NewFlatImageFromReaderAt(bytes.NewReader(data), disc.MediumCDROM, tracks)

	want, err := sector.Encode(sector.TypeMode1, 16, data[16*sector.UserDataMode1:17*sector.UserDataMode1])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	d := newTestDispatcher()
	drainUA(d)
	d.Device.LoadImage(img)
	drainUA(d)

	cases := []struct {
		name   string
		cdb9   byte
		region sector.Region
	}{
		{"userDataOnly", 0x10, sector.RegionUserData},
		{"headerOnly", 0x20, sector.RegionHeader},
		{"syncHeaderDataEDC", 0x80 | 0x20 | 0x10 | 0x08, sector.RegionSync | sector.RegionHeader | sector.RegionUserData | sector.RegionEDCECC},
		{"all", 0xF8, sector.RegionAll},
		{"none", 0x00, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cdb := make([]byte, 12)
			cdb[0] = ReadCD
			cdb[5] = 16 // LBA 16
			cdb[8] = 1  // 1 block
			cdb[9] = c.cdb9

			resp := d.Execute(Command{CDB: cdb})
			if resp.Status != 0x00 {
				t.Fatalf("status = %#x, want GOOD", resp.Status)
			}
			wantBytes := want.RegionBytes(c.region)
			if !bytes.Equal(resp.Data, wantBytes) {
				t.Errorf("data = % X, want % X", resp.Data, wantBytes)
			}
		})
	}
}

// TestReadCDSubChannel checks both supported sub-channel selections against
// the same CRC a real Q sub-channel reader would verify.
func TestReadCDSubChannel(t *testing.T) {
	data := make([]byte, 17*sector.UserDataMode1)
	tracks := []disc.Track{{Number: 1, Type: sector.TypeMode1, StartLBA: 0, EndLBA: 350000}}
	img := disc.NewFlatImageFromReaderAt(bytes.NewReader(data), disc.MediumCDROM, tracks)

	d := newTestDispatcher()
	drainUA(d)
	d.Device.LoadImage(img)
	drainUA(d)

	t.Run("formattedQ", func(t *testing.T) {
		cdb := make([]byte, 12)
		cdb[0] = ReadCD
		cdb[5] = 16
		cdb[8] = 1
		cdb[9] = 0x00 // no main channel bytes
		cdb[10] = 0x02

		resp := d.Execute(Command{CDB: cdb})
		if resp.Status != 0x00 {
			t.Fatalf("status = %#x, want GOOD", resp.Status)
		}
		if len(resp.Data) != 12 {
			t.Fatalf("len(data) = %d, want 12", len(resp.Data))
		}
		crc := sector.QCRC16(resp.Data[:10])
		got := binary.BigEndian.Uint16(resp.Data[10:12])
		if crc != got {
			t.Errorf("Q CRC = %#04x, want %#04x", got, crc)
		}
	})

	t.Run("rawPW", func(t *testing.T) {
		cdb := make([]byte, 12)
		cdb[0] = ReadCD
		cdb[5] = 16
		cdb[8] = 1
		cdb[9] = 0x00
		cdb[10] = 0x01

		resp := d.Execute(Command{CDB: cdb})
		if resp.Status != 0x00 {
			t.Fatalf("status = %#x, want GOOD", resp.Status)
		}
		if len(resp.Data) != sector.SubchannelSize {
			t.Fatalf("len(data) = %d, want %d", len(resp.Data), sector.SubchannelSize)
		}
		var interleaved [sector.SubchannelSize]byte
		copy(interleaved[:], resp.Data)
		deint := sector.DeinterleavePW(&interleaved)
		q := deint[sector.ChannelQ*12 : sector.ChannelQ*12+12]
		crc := sector.QCRC16(q[:10])
		got := binary.BigEndian.Uint16(q[10:12])
		if crc != got {
			t.Errorf("Q CRC = %#04x, want %#04x", got, crc)
		}
	})

	t.Run("reservedSubchannel", func(t *testing.T) {
		cdb := make([]byte, 12)
		cdb[0] = ReadCD
		cdb[5] = 16
		cdb[8] = 1
		cdb[10] = 0x04
		resp := d.Execute(Command{CDB: cdb})
		if resp.Status != 0x02 {
			t.Fatalf("status = %#x, want CHECK CONDITION", resp.Status)
		}
	})
}
