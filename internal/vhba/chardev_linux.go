//go:build linux

package vhba

import (
	"context"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/dswarbrick/smart/ioctl"
	"golang.org/x/sys/unix"
)

// CharDevice talks to a real /dev/vhba_ctl node exposed by the out-of-tree
// vhba-module kernel driver: one open file descriptor per virtual device,
// read() to pull the next queued command, write() to post its response,
// and the IDENT/DEVNUM ioctls to discover the device's SCSI address.
type CharDevice struct {
	f *os.File

	mu sync.Mutex
}

// OpenCharDevice opens path (typically "/dev/vhba_ctl") and registers a new
// virtual device with the driver.
func OpenCharDevice(path string) (*CharDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("vhba: open %s: %w", path, err)
	}
	return &CharDevice{f: f}, nil
}

func (c *CharDevice) Ident(ctx context.Context) (IdentInfo, error) {
	var info IdentInfo
	if err := ioctl.Ioctl(c.f.Fd(), IoctlIdent, uintptr(unsafe.Pointer(&info))); err != nil {
		return IdentInfo{}, fmt.Errorf("vhba: IDENT ioctl: %w", err)
	}
	return info, nil
}

func (c *CharDevice) Devnum(ctx context.Context) (uint32, error) {
	var devnum uint32
	if err := ioctl.Ioctl(c.f.Fd(), IoctlDevnum, uintptr(unsafe.Pointer(&devnum))); err != nil {
		return 0, fmt.Errorf("vhba: DEVNUM ioctl: %w", err)
	}
	return devnum, nil
}

func (c *CharDevice) NextRequest(ctx context.Context) (*Request, []byte, error) {
	if err := waitReadable(ctx, c.f); err != nil {
		return nil, nil, err
	}

	hdr := make([]byte, RequestHeaderSize)
	if _, err := readFull(c.f, hdr); err != nil {
		return nil, nil, fmt.Errorf("vhba: reading request header: %w", err)
	}
	req, err := UnmarshalRequest(hdr)
	if err != nil {
		return nil, nil, err
	}

	var data []byte
	if req.DataLen > 0 && req.CDBLen > 0 && isWriteDirection(req.CDB[0]) {
		data = make([]byte, req.DataLen)
		if _, err := readFull(c.f, data); err != nil {
			return nil, nil, fmt.Errorf("vhba: reading request payload: %w", err)
		}
	}
	return req, data, nil
}

func (c *CharDevice) Respond(ctx context.Context, resp *Response, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := MarshalResponse(resp)
	buf = append(buf, data...)
	if _, err := c.f.Write(buf); err != nil {
		return fmt.Errorf("vhba: writing response: %w", err)
	}
	return nil
}

func (c *CharDevice) Close() error {
	return c.f.Close()
}

// waitReadable polls fd for incoming data in short slices so a cancelled
// ctx unblocks NextRequest promptly instead of leaving it parked in a
// blocking read() indefinitely.
func waitReadable(ctx context.Context, f *os.File) error {
	fds := []unix.PollFd{{Fd: int32(f.Fd()), Events: unix.POLLIN}}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := unix.Poll(fds, 250)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("vhba: poll: %w", err)
		}
		if n > 0 && fds[0].Revents&unix.POLLIN != 0 {
			return nil
		}
	}
}

func readFull(f *os.File, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		if err != nil {
			return n, err
		}
		n += m
	}
	return n, nil
}

// isWriteDirection reports whether a SCSI opcode transfers data from the
// host to the device (WRITE-class commands); VHBA only needs this to
// decide whether a request's payload follows its header on the read side.
func isWriteDirection(opcode byte) bool {
	switch opcode {
	case 0x0A, 0x2A, 0xAA, 0x15, 0x55, 0xA3:
		return true
	default:
		return false
	}
}
