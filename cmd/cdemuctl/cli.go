package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/godbus/dbus/v5"

	"github.com/cdemu-project/cdemu-go/internal/orchestrator"
)

// context is the context struct required by kong command line parser. It
// dials the session bus lazily so a --help invocation never needs a daemon
// running.
type context struct {
	conn *dbus.Conn
}

func (c *context) object() (dbus.BusObject, error) {
	if c.conn == nil {
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			return nil, fmt.Errorf("connecting to session bus: %w", err)
		}
		c.conn = conn
	}
	return c.conn.Object(orchestrator.BusName, dbus.ObjectPath(orchestrator.ObjectPath)), nil
}

type dbusDriveStatus struct {
	ID        int32
	Loaded    bool
	Filenames []string
}

type listCmd struct{}

type statusCmd struct {
	Drive int32 `arg:"" help:"Drive index"`
}

type loadCmd struct {
	Drive    int32  `arg:"" help:"Drive index"`
	Filename string `arg:"" help:"Path to the image file to load"`
	DeviceID string `flag:"" optional:"" help:"Override the INQUIRY product string this drive reports"`
}

type unloadCmd struct {
	Drive int32 `arg:"" help:"Drive index"`
}

type getOptionCmd struct {
	Drive int32  `arg:"" help:"Drive index"`
	Name  string `arg:"" help:"Option name"`
}

type setOptionCmd struct {
	Drive int32  `arg:"" help:"Drive index"`
	Name  string `arg:"" help:"Option name"`
	Value string `arg:"" help:"Option value"`
}

// cli is the main command line interface struct required by kong command
// line parser.
var cli struct {
	List      listCmd      `cmd:"" help:"List every drive and its load state"`
	Status    statusCmd    `cmd:"" help:"Show one drive's load state"`
	Load      loadCmd      `cmd:"" help:"Load an image into a drive"`
	Unload    unloadCmd    `cmd:"" help:"Unload a drive's image"`
	GetOption getOptionCmd `cmd:"" name:"get-option" help:"Read a drive option"`
	SetOption setOptionCmd `cmd:"" name:"set-option" help:"Write a drive option"`
}

func (l *listCmd) Run(ctx *context) error {
	obj, err := ctx.object()
	if err != nil {
		return err
	}
	var statuses []dbusDriveStatus
	if err := obj.Call(orchestrator.InterfaceName+".EnumerateDrives", 0).Store(&statuses); err != nil {
		return fmt.Errorf("EnumerateDrives: %w", err)
	}
	for _, s := range statuses {
		if s.Loaded {
			fmt.Printf("drive %d: loaded %v\n", s.ID, s.Filenames)
		} else {
			fmt.Printf("drive %d: empty\n", s.ID)
		}
	}
	return nil
}

func (s *statusCmd) Run(ctx *context) error {
	obj, err := ctx.object()
	if err != nil {
		return err
	}
	var statuses []dbusDriveStatus
	if err := obj.Call(orchestrator.InterfaceName+".EnumerateDrives", 0).Store(&statuses); err != nil {
		return fmt.Errorf("EnumerateDrives: %w", err)
	}
	for _, st := range statuses {
		if st.ID == s.Drive {
			spew.Dump(st)
			return nil
		}
	}
	return fmt.Errorf("no such drive: %d", s.Drive)
}

func (l *loadCmd) Run(ctx *context) error {
	obj, err := ctx.object()
	if err != nil {
		return err
	}
	call := obj.Call(orchestrator.InterfaceName+".LoadImage", 0, l.Drive, []string{l.Filename}, l.DeviceID)
	if call.Err != nil {
		return fmt.Errorf("LoadImage: %w", call.Err)
	}
	fmt.Printf("drive %d: loaded %s\n", l.Drive, l.Filename)
	return nil
}

func (u *unloadCmd) Run(ctx *context) error {
	obj, err := ctx.object()
	if err != nil {
		return err
	}
	call := obj.Call(orchestrator.InterfaceName+".UnloadImage", 0, u.Drive)
	if call.Err != nil {
		return fmt.Errorf("UnloadImage: %w", call.Err)
	}
	fmt.Printf("drive %d: unloaded\n", u.Drive)
	return nil
}

func (g *getOptionCmd) Run(ctx *context) error {
	obj, err := ctx.object()
	if err != nil {
		return err
	}
	var value string
	if err := obj.Call(orchestrator.InterfaceName+".GetOption", 0, g.Drive, g.Name).Store(&value); err != nil {
		return fmt.Errorf("GetOption: %w", err)
	}
	fmt.Println(value)
	return nil
}

func (s *setOptionCmd) Run(ctx *context) error {
	obj, err := ctx.object()
	if err != nil {
		return err
	}
	call := obj.Call(orchestrator.InterfaceName+".SetOption", 0, s.Drive, s.Name, s.Value)
	if call.Err != nil {
		return fmt.Errorf("SetOption: %w", call.Err)
	}
	return nil
}
