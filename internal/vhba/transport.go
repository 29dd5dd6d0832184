package vhba

import "context"

// Transport is the host-adapter side of the VHBA protocol: it delivers
// SCSI commands queued by the kernel (or an in-process reference engine,
// see the vhbahost package) and carries responses back. Implementations
// are safe for concurrent use by one reader and one writer goroutine per
// device, matching how the kernel driver itself serializes request
// delivery and response matching by Metatag rather than by order.
type Transport interface {
	// Ident returns the SCSI address the transport was opened against.
	Ident(ctx context.Context) (IdentInfo, error)

	// Devnum returns the transport's single-integer device number.
	Devnum(ctx context.Context) (uint32, error)

	// NextRequest blocks until a command is available and returns its
	// header plus any data payload that accompanied it (present for
	// write-direction commands).
	NextRequest(ctx context.Context) (*Request, []byte, error)

	// Respond completes the request identified by resp.Metatag, carrying
	// data for read-direction commands.
	Respond(ctx context.Context, resp *Response, data []byte) error

	Close() error
}
