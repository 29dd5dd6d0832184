package vhba

import (
	"bytes"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{
		Metatag: 42,
		Lun:     0,
		CDBLen:  10,
		DataLen: 2048,
	}
	req.CDB[0] = 0x28 // READ(10)

	got, err := UnmarshalRequest(MarshalRequest(req))
	if err != nil {
		t.Fatalf("UnmarshalRequest: %v", err)
	}
	if *got != *req {
		t.Errorf("UnmarshalRequest(MarshalRequest(x)) = %+v, want %+v", got, req)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := &Response{Metatag: 7, Status: StatusCheckCondition, DataLen: 18}
	got, err := UnmarshalResponse(MarshalResponse(resp))
	if err != nil {
		t.Fatalf("UnmarshalResponse: %v", err)
	}
	if *got != *resp {
		t.Errorf("UnmarshalResponse(MarshalResponse(x)) = %+v, want %+v", got, resp)
	}
}

func TestUnmarshalRequestShortBuffer(t *testing.T) {
	if _, err := UnmarshalRequest(make([]byte, 4)); err == nil {
		t.Errorf("UnmarshalRequest of a short buffer succeeded, want error")
	}
}

func TestUnmarshalResponseShortBuffer(t *testing.T) {
	if _, err := UnmarshalResponse(make([]byte, 4)); err == nil {
		t.Errorf("UnmarshalResponse of a short buffer succeeded, want error")
	}
}

func TestDevNum(t *testing.T) {
	testCases := []struct {
		name     string
		bus, id  uint32
		wantDiff bool
	}{
		{"bus 0 id 0", 0, 0, false},
		{"bus 1 id 0", 1, 0, true},
	}
	base := DevNum(0, 0)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DevNum(tc.bus, tc.id)
			if (got != base) != tc.wantDiff {
				t.Errorf("DevNum(%d, %d) = %d, base = %d", tc.bus, tc.id, got, base)
			}
		})
	}
}

func TestMarshalRequestHeaderSize(t *testing.T) {
	req := &Request{}
	if got := len(MarshalRequest(req)); got != RequestHeaderSize {
		t.Errorf("len(MarshalRequest) = %d, want %d", got, RequestHeaderSize)
	}
}

func TestMarshalResponseHeaderSize(t *testing.T) {
	resp := &Response{}
	if got := len(MarshalResponse(resp)); got != ResponseHeaderSize {
		t.Errorf("len(MarshalResponse) = %d, want %d", got, ResponseHeaderSize)
	}
}

func TestMarshalRequestCDBPreserved(t *testing.T) {
	req := &Request{CDBLen: 16}
	for i := range req.CDB {
		req.CDB[i] = byte(i)
	}
	buf := MarshalRequest(req)
	got, err := UnmarshalRequest(buf)
	if err != nil {
		t.Fatalf("UnmarshalRequest: %v", err)
	}
	if !bytes.Equal(got.CDB[:], req.CDB[:]) {
		t.Errorf("CDB not preserved across marshal round-trip")
	}
}
