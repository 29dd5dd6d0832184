// Package vhbahost is an in-process reference implementation of the VHBA
// kernel driver's command pool and delivery state machine. It implements
// vhba.Transport directly, so the MMC dispatcher can drive a virtual drive
// without any real kernel module or character device present — useful both
// for tests and for running cdemu entirely in userspace.
package vhbahost

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cdemu-project/cdemu-go/internal/vhba"
)

type cmdState int

const (
	stateFree cmdState = iota
	statePending
	stateReading
	stateSent
	stateWriting
)

// ErrHostBusy is returned by Queue when every slot in the command pool is
// occupied, mirroring SCSI_MLQUEUE_HOST_BUSY.
var ErrHostBusy = errors.New("vhbahost: command pool exhausted")

// ErrNotExpectingResponse is returned by Respond when metatag does not
// identify a command currently awaiting a response.
var ErrNotExpectingResponse = errors.New("vhbahost: not expecting a response for this metatag")

type result struct {
	status  uint32
	data    []byte
	aborted bool
}

type command struct {
	state   cmdState
	metatag uint32
	lun     uint32
	cdb     [vhba.MaxCDBLen]byte
	cdbLen  uint8
	data    []byte
	element *list.Element
	result  chan result
}

// Host is one virtual device's command pool: canQueue fixed slots, a FIFO
// of slots currently in flight, and the Free/Pending/Reading/Sent/Writing
// lifecycle each slot moves through between Queue and Respond.
type Host struct {
	ident  vhba.IdentInfo
	devnum uint32

	mu       sync.Mutex
	pool     []*command
	poolNext int
	fifo     *list.List
	notify   chan struct{}
	closed   bool
}

// NewHost creates a host with canQueue slots, clamped to [1, 256] as the
// kernel driver clamps its own can_queue module parameter.
func NewHost(canQueue int, ident vhba.IdentInfo, devnum uint32) *Host {
	if canQueue < 1 {
		canQueue = 1
	}
	if canQueue > 256 {
		canQueue = 256
	}
	pool := make([]*command, canQueue)
	for i := range pool {
		pool[i] = &command{state: stateFree, metatag: uint32(i)}
	}
	return &Host{
		ident:  ident,
		devnum: devnum,
		pool:   pool,
		fifo:   list.New(),
		notify: make(chan struct{}),
	}
}

// wake broadcasts to every goroutine currently waiting on h.notify. Callers
// must hold h.mu.
func (h *Host) wake() {
	close(h.notify)
	h.notify = make(chan struct{})
}

// wait blocks until the next wake() or ctx cancellation. Callers must NOT
// hold h.mu, and it is not held on return; callers re-lock it themselves.
func (h *Host) wait(ctx context.Context) error {
	h.mu.Lock()
	ch := h.notify
	h.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// allocCommand finds a free slot using the same round-robin scan as the
// kernel driver's vhba_alloc_command: try the slot after the last one
// handed out, then fall back to a full scan. Callers must hold h.mu.
func (h *Host) allocCommand() *command {
	n := len(h.pool)
	cmd := h.pool[h.poolNext%n]
	h.poolNext = (h.poolNext + 1) % n
	if cmd.state == stateFree {
		return cmd
	}
	for i := 0; i < n; i++ {
		if h.pool[i].state == stateFree {
			h.poolNext = (i + 1) % n
			return h.pool[i]
		}
	}
	return nil
}

// Queue submits a SCSI command for delivery to a consumer of NextRequest
// and blocks until Respond (or Abort) completes it. data is the
// write-direction payload accompanying cdb, if any.
func (h *Host) Queue(ctx context.Context, lun uint32, cdb []byte, cdbLen uint8, data []byte) (status uint32, respData []byte, err error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0, nil, fmt.Errorf("vhbahost: host closed")
	}
	cmd := h.allocCommand()
	if cmd == nil {
		h.mu.Unlock()
		return 0, nil, ErrHostBusy
	}
	cmd.state = statePending
	cmd.lun = lun
	cmd.cdbLen = cdbLen
	copy(cmd.cdb[:], cdb)
	cmd.data = data
	cmd.result = make(chan result, 1)
	cmd.element = h.fifo.PushBack(cmd)
	h.wake()
	h.mu.Unlock()

	select {
	case r := <-cmd.result:
		if r.aborted {
			return 0, nil, context.Canceled
		}
		return r.status, r.data, nil
	case <-ctx.Done():
		h.Abort(cmd.metatag)
		return 0, nil, ctx.Err()
	}
}

func (h *Host) Ident(ctx context.Context) (vhba.IdentInfo, error) {
	return h.ident, nil
}

func (h *Host) Devnum(ctx context.Context) (uint32, error) {
	return h.devnum, nil
}

// NextRequest returns the oldest Pending command in FIFO order, matching
// next_command's linear scan of the device's command list. It blocks until
// one is available or ctx is cancelled.
func (h *Host) NextRequest(ctx context.Context) (*vhba.Request, []byte, error) {
	for {
		h.mu.Lock()
		var found *command
		for e := h.fifo.Front(); e != nil; e = e.Next() {
			c := e.Value.(*command)
			if c.state == statePending {
				found = c
				break
			}
		}
		if found != nil {
			req := &vhba.Request{
				Metatag: found.metatag,
				Lun:     found.lun,
				CDB:     found.cdb,
				CDBLen:  found.cdbLen,
				DataLen: uint32(len(found.data)),
			}
			data := append([]byte(nil), found.data...)
			// Reading is transient: by the time the caller has the bytes,
			// the command is Sent and awaiting a response.
			found.state = stateSent
			h.mu.Unlock()
			return req, data, nil
		}
		closed := h.closed
		h.mu.Unlock()
		if closed {
			return nil, nil, fmt.Errorf("vhbahost: host closed")
		}
		if err := h.wait(ctx); err != nil {
			return nil, nil, err
		}
	}
}

// Respond completes the command identified by resp.Metatag, matching
// vhba_ctl_write: the command must currently be Sent.
func (h *Host) Respond(ctx context.Context, resp *vhba.Response, data []byte) error {
	h.mu.Lock()
	if int(resp.Metatag) >= len(h.pool) {
		h.mu.Unlock()
		return ErrNotExpectingResponse
	}
	cmd := h.pool[resp.Metatag]
	if cmd.state != stateSent {
		h.mu.Unlock()
		return ErrNotExpectingResponse
	}
	cmd.state = stateWriting
	// Writing is transient: no blocking I/O happens between accepting the
	// response and freeing the slot in this in-process engine.
	if cmd.element != nil {
		h.fifo.Remove(cmd.element)
		cmd.element = nil
	}
	cmd.state = stateFree
	resultCh := cmd.result
	h.wake()
	h.mu.Unlock()

	resultCh <- result{status: resp.Status, data: data}
	return nil
}

// Abort cancels the command identified by metatag. It reports failed=true
// if the command had already been delivered to a NextRequest consumer and
// so could not be cleanly cancelled (matching vhba_device_dequeue's FAILED
// case); failed=false if it was still Pending and was cancelled outright.
func (h *Host) Abort(metatag uint32) (failed bool, err error) {
	if int(metatag) >= len(h.pool) {
		return false, fmt.Errorf("vhbahost: unknown metatag %d", metatag)
	}
	cmd := h.pool[metatag]

	for {
		h.mu.Lock()
		if cmd.state != stateReading && cmd.state != stateWriting {
			break
		}
		h.mu.Unlock()
		h.wait(context.Background())
	}

	if cmd.state == stateFree {
		h.mu.Unlock()
		return false, nil
	}

	if cmd.state == stateSent {
		// Already delivered: leave it in place for its Respond.
		h.mu.Unlock()
		return true, nil
	}
	if cmd.element != nil {
		h.fifo.Remove(cmd.element)
		cmd.element = nil
	}
	cmd.state = stateFree
	resultCh := cmd.result
	h.wake()
	h.mu.Unlock()

	if resultCh != nil {
		select {
		case resultCh <- result{aborted: true}:
		default:
		}
	}
	return failed, nil
}

// Close marks the host closed; any NextRequest call blocked waiting for a
// command returns an error instead of hanging forever.
func (h *Host) Close() error {
	h.mu.Lock()
	h.closed = true
	h.wake()
	h.mu.Unlock()
	return nil
}

var _ vhba.Transport = (*Host)(nil)
