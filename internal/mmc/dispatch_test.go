package mmc

import (
	"bytes"
	"testing"

	"github.com/cdemu-project/cdemu-go/internal/audio"
	"github.com/cdemu-project/cdemu-go/internal/disc"
	"github.com/cdemu-project/cdemu-go/internal/sector"
)

type nullSink struct{}

func (nullSink) Open(audio.Format) error { return nil }
func (nullSink) PlayPCM([]byte) error    { return nil }
func (nullSink) Close() error            { return nil }

func newTestDispatcher() *Dispatcher {
	dev := NewDevice("CDEmu", "Virt. CD/DVD-ROM", "1.10")
	eng := audio.NewEngine(func() audio.Sink { return nullSink{} })
	return NewDispatcher(dev, eng)
}

func drainUA(d *Dispatcher) {
	d.Device.mu.Lock()
	d.Device.uaQueue = nil
	d.Device.mu.Unlock()
}

func TestTestUnitReadyNoMedium(t *testing.T) {
	d := newTestDispatcher()
	drainUA(d)

	resp := d.Execute(Command{CDB: []byte{TestUnitReady, 0, 0, 0, 0, 0}})
	if resp.Status != 0x02 {
		t.Fatalf("status = %#x, want 0x02", resp.Status)
	}
	want := []byte{0x70, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x0A, 0x00, 0x00, 0x00, 0x00, 0x3A, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(resp.Sense.Bytes(), want) {
		t.Errorf("sense = % X, want % X", resp.Sense.Bytes(), want)
	}
}

func TestInquiryStandard(t *testing.T) {
	d := newTestDispatcher()
	drainUA(d)

	resp := d.Execute(Command{CDB: []byte{Inquiry, 0, 0, 0, 36, 0}})
	if resp.Status != 0x00 {
		t.Fatalf("status = %#x, want GOOD", resp.Status)
	}
	if len(resp.Data) != 36 {
		t.Fatalf("len(data) = %d, want 36", len(resp.Data))
	}
	wantHead := []byte{0x05, 0x80, 0x02, 0x02, 0x1F, 0x00, 0x00, 0x00}
	if !bytes.Equal(resp.Data[:8], wantHead) {
		t.Errorf("header = % X, want % X", resp.Data[:8], wantHead)
	}
	if string(resp.Data[8:16]) != "CDEmu   " {
		t.Errorf("vendor = %q, want %q", resp.Data[8:16], "CDEmu   ")
	}
	if string(resp.Data[16:32]) != "Virt. CD/DVD-ROM" {
		t.Errorf("product = %q, want %q", resp.Data[16:32], "Virt. CD/DVD-ROM")
	}
	if string(resp.Data[32:36]) != "1.10" {
		t.Errorf("revision = %q, want %q", resp.Data[32:36], "1.10")
	}
}

func newPVDImage(t *testing.T) disc.DiscImage {
	t.Helper()
	data := make([]byte, 17*sector.UserDataMode1)
	copy(data[16*sector.UserDataMode1:], []byte("\x01CD001\x01\x00"))
	tracks := []disc.Track{{Number: 1, Type: sector.TypeMode1, StartLBA: 0, EndLBA: 350000}}
	return disc.NewFlatImageFromReaderAt(bytes.NewReader(data), disc.MediumCDROM, tracks)
}

func TestReadCapacity(t *testing.T) {
	d := newTestDispatcher()
	drainUA(d)
	d.Device.LoadImage(newPVDImage(t))
	drainUA(d)

	resp := d.Execute(Command{CDB: []byte{ReadCapacity, 0, 0, 0, 0, 0, 0, 0, 0, 0}})
	if resp.Status != 0x00 {
		t.Fatalf("status = %#x, want GOOD", resp.Status)
	}
	want := []byte{0x00, 0x05, 0x57, 0x2F, 0x00, 0x00, 0x08, 0x00}
	if !bytes.Equal(resp.Data, want) {
		t.Errorf("data = % X, want % X", resp.Data, want)
	}
}

func TestRead10PVD(t *testing.T) {
	d := newTestDispatcher()
	drainUA(d)
	d.Device.LoadImage(newPVDImage(t))
	drainUA(d)

	cdb := []byte{Read10, 0, 0, 0, 0, 16, 0, 0, 1, 0}
	resp := d.Execute(Command{CDB: cdb})
	if resp.Status != 0x00 {
		t.Fatalf("status = %#x, want GOOD", resp.Status)
	}
	if len(resp.Data) != sector.UserDataMode1 {
		t.Fatalf("len(data) = %d, want %d", len(resp.Data), sector.UserDataMode1)
	}
	wantHead := []byte{0x01, 0x43, 0x44, 0x30, 0x30, 0x31, 0x01, 0x00}
	if !bytes.Equal(resp.Data[:8], wantHead) {
		t.Errorf("data head = % X, want % X", resp.Data[:8], wantHead)
	}
}

func TestReadSubChannelNoPlayback(t *testing.T) {
	d := newTestDispatcher()
	drainUA(d)
	d.Device.LoadImage(newPVDImage(t))
	drainUA(d)

	cdb := []byte{ReadSubChannel, 0x02, 0x40, 0x01, 0, 0, 0, 0, 0xFF, 0}
	resp := d.Execute(Command{CDB: cdb})
	if resp.Status != 0x00 {
		t.Fatalf("status = %#x, want GOOD", resp.Status)
	}
	if len(resp.Data) < 16 {
		t.Fatalf("len(data) = %d, want >= 16", len(resp.Data))
	}
	if resp.Data[1] != byte(AudioStatusNoStatus) {
		t.Errorf("audio status = %#x, want %#x", resp.Data[1], AudioStatusNoStatus)
	}
}

func newAudioImage(t *testing.T) disc.DiscImage {
	t.Helper()
	data := make([]byte, 10*sector.FrameSize)
	tracks := []disc.Track{{Number: 1, Type: sector.TypeAudio, StartLBA: 0, EndLBA: 10}}
	return disc.NewFlatImageFromReaderAt(bytes.NewReader(data), disc.MediumCDROM, tracks)
}

func TestPlayPauseResumeStop(t *testing.T) {
	d := newTestDispatcher()
	drainUA(d)
	d.Device.LoadImage(newAudioImage(t))
	drainUA(d)

	playCDB := []byte{PlayAudio10, 0, 0, 0, 0, 0, 0, 0, 8, 0}
	if resp := d.Execute(Command{CDB: playCDB}); resp.Status != 0x00 {
		t.Fatalf("PLAY AUDIO status = %#x, want GOOD", resp.Status)
	}
	if got := d.Audio.Status(); got != audio.Playing {
		t.Fatalf("status after PLAY = %v, want Playing", got)
	}

	pauseCDB := []byte{PauseResume, 0, 0, 0, 0, 0, 0, 0, 0x00}
	if resp := d.Execute(Command{CDB: pauseCDB}); resp.Status != 0x00 {
		t.Fatalf("PAUSE status = %#x, want GOOD", resp.Status)
	}
	if got := d.Audio.Status(); got != audio.Paused {
		t.Fatalf("status after PAUSE = %v, want Paused", got)
	}

	resumeCDB := []byte{PauseResume, 0, 0, 0, 0, 0, 0, 0, 0x01}
	if resp := d.Execute(Command{CDB: resumeCDB}); resp.Status != 0x00 {
		t.Fatalf("RESUME status = %#x, want GOOD", resp.Status)
	}
	if got := d.Audio.Status(); got != audio.Playing {
		t.Fatalf("status after RESUME = %v, want Playing", got)
	}

	stopCDB := []byte{StopPlayScan, 0, 0, 0, 0, 0}
	if resp := d.Execute(Command{CDB: stopCDB}); resp.Status != 0x00 {
		t.Fatalf("STOP status = %#x, want GOOD", resp.Status)
	}
	if got := d.Audio.Status(); got != audio.NoStatus {
		t.Fatalf("status after STOP = %v, want NoStatus", got)
	}
}
