package vhbahost

import (
	"context"
	"testing"
	"time"

	"github.com/cdemu-project/cdemu-go/internal/vhba"
)

func newTestHost(canQueue int) *Host {
	return NewHost(canQueue, vhba.IdentInfo{HostNo: 0, Bus: 0, ID: 0, Lun: 0}, 0)
}

func TestQueueNextRequestRespondRoundTrip(t *testing.T) {
	h := newTestHost(4)
	ctx := context.Background()

	done := make(chan struct{})
	var status uint32
	var respData []byte
	var queueErr error
	go func() {
		status, respData, queueErr = h.Queue(ctx, 0, []byte{0x00}, 1, nil)
		close(done)
	}()

	req, _, err := h.NextRequest(ctx)
	if err != nil {
		t.Fatalf("NextRequest: %v", err)
	}
	if req.CDB[0] != 0x00 {
		t.Errorf("request CDB[0] = %#x, want 0x00", req.CDB[0])
	}

	if err := h.Respond(ctx, &vhba.Response{Metatag: req.Metatag, Status: vhba.StatusOK}, []byte("ok")); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Queue did not return after Respond")
	}
	if queueErr != nil {
		t.Fatalf("Queue: %v", queueErr)
	}
	if status != vhba.StatusOK {
		t.Errorf("status = %d, want StatusOK", status)
	}
	if string(respData) != "ok" {
		t.Errorf("respData = %q, want %q", respData, "ok")
	}
}

func TestNextRequestFIFOOrder(t *testing.T) {
	h := newTestHost(4)
	ctx := context.Background()

	// Let each command enter the queue before the next one is issued, so the
	// queueing order is well defined.
	for i := 0; i < 3; i++ {
		go h.Queue(ctx, 0, []byte{byte(i)}, 1, nil)
		time.Sleep(10 * time.Millisecond)
	}

	for i := 0; i < 3; i++ {
		req, _, err := h.NextRequest(ctx)
		if err != nil {
			t.Fatalf("NextRequest: %v", err)
		}
		if req.CDB[0] != byte(i) {
			t.Errorf("request %d has CDB[0] = %d, want %d (FIFO order)", i, req.CDB[0], i)
		}
		h.Respond(ctx, &vhba.Response{Metatag: req.Metatag, Status: vhba.StatusOK}, nil)
	}
}

func TestQueueHostBusyWhenPoolExhausted(t *testing.T) {
	h := newTestHost(1)
	ctx := context.Background()

	go h.Queue(ctx, 0, []byte{0x00}, 1, nil)
	time.Sleep(20 * time.Millisecond)

	_, _, err := h.Queue(ctx, 0, []byte{0x01}, 1, nil)
	if err != ErrHostBusy {
		t.Errorf("Queue() on an exhausted pool = %v, want ErrHostBusy", err)
	}
}

func TestAbortPendingSucceeds(t *testing.T) {
	h := newTestHost(4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, _, err := h.Queue(ctx, 0, []byte{0x00}, 1, nil)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Errorf("Queue() after cancellation returned nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("Queue did not unblock after context cancellation")
	}
}

func TestAbortSentFails(t *testing.T) {
	h := newTestHost(4)
	ctx := context.Background()

	go h.Queue(ctx, 0, []byte{0x00}, 1, nil)
	req, _, err := h.NextRequest(ctx)
	if err != nil {
		t.Fatalf("NextRequest: %v", err)
	}

	failed, err := h.Abort(req.Metatag)
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if !failed {
		t.Errorf("Abort() of a Sent command = false, want true (FAILED)")
	}
}

func TestRespondRejectsUnknownMetatag(t *testing.T) {
	h := newTestHost(2)
	ctx := context.Background()
	if err := h.Respond(ctx, &vhba.Response{Metatag: 0}, nil); err != ErrNotExpectingResponse {
		t.Errorf("Respond() for a slot not awaiting a response = %v, want ErrNotExpectingResponse", err)
	}
}

func TestIdentAndDevnum(t *testing.T) {
	h := NewHost(1, vhba.IdentInfo{HostNo: 1, Bus: 2, ID: 3}, vhba.DevNum(2, 3))
	ctx := context.Background()

	ident, err := h.Ident(ctx)
	if err != nil {
		t.Fatalf("Ident: %v", err)
	}
	if ident.Bus != 2 || ident.ID != 3 {
		t.Errorf("Ident() = %+v, want Bus=2 ID=3", ident)
	}
	devnum, err := h.Devnum(ctx)
	if err != nil {
		t.Fatalf("Devnum: %v", err)
	}
	if devnum != vhba.DevNum(2, 3) {
		t.Errorf("Devnum() = %d, want %d", devnum, vhba.DevNum(2, 3))
	}
}
