package orchestrator

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Bus names and paths the daemon exports its control interface under, the
// same coordinates the reference CDEmu daemon used.
const (
	BusName       = "net.sf.cdemu.CDEMUD_Daemon"
	ObjectPath    = "/net/sf/cdemu/CDEMUD_Daemon"
	InterfaceName = "net.sf.cdemu.CDEMUD_Daemon"
)

// DBusChannel exports an Orchestrator's ControlChannel methods on a D-Bus
// session bus connection, the real CDEmu control surface that cdemuctl and
// the KDE/GNOME front-ends talk to.
type DBusChannel struct {
	conn  *dbus.Conn
	inner ControlChannel
}

// ExportDBus claims BusName on conn and exports inner's methods under
// ObjectPath/InterfaceName. The caller owns conn and must Close it; calling
// Close on the returned DBusChannel releases the bus name but does not
// close the connection.
func ExportDBus(conn *dbus.Conn, inner ControlChannel) (*DBusChannel, error) {
	c := &DBusChannel{conn: conn, inner: inner}

	if err := conn.Export(c, dbus.ObjectPath(ObjectPath), InterfaceName); err != nil {
		return nil, fmt.Errorf("orchestrator: exporting dbus interface: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: requesting bus name %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("orchestrator: bus name %s already owned", BusName)
	}
	return c, nil
}

// Close releases BusName; it does not close the underlying connection.
func (c *DBusChannel) Close() error {
	_, err := c.conn.ReleaseName(BusName)
	return err
}

// dbusDriveStatus is the wire shape EnumerateDrives returns, encoded as a
// D-Bus struct (ibas); ID is int32 because D-Bus has no platform-sized
// integer type.
type dbusDriveStatus struct {
	ID        int32
	Loaded    bool
	Filenames []string
}

// EnumerateDrives is exported on the bus as
// net.sf.cdemu.CDEMUD_Daemon.EnumerateDrives() -> a(ibas).
func (c *DBusChannel) EnumerateDrives() ([]dbusDriveStatus, *dbus.Error) {
	statuses, err := c.inner.EnumerateDrives()
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}
	out := make([]dbusDriveStatus, len(statuses))
	for i, s := range statuses {
		out[i] = dbusDriveStatus{ID: int32(s.ID), Loaded: s.Loaded, Filenames: s.Filenames}
	}
	return out, nil
}

// LoadImage is exported as LoadImage(i, as, deviceID s) -> (nothing).
// Only the DeviceID knob is plumbed through the bus; DPM and transfer-rate
// emulation have no effect in this implementation (see LoadOptions).
func (c *DBusChannel) LoadImage(driveID int32, filenames []string, deviceID string) *dbus.Error {
	if err := c.inner.LoadImage(int(driveID), filenames, LoadOptions{DeviceID: deviceID}); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// UnloadImage is exported as UnloadImage(i) -> (nothing).
func (c *DBusChannel) UnloadImage(driveID int32) *dbus.Error {
	if err := c.inner.UnloadImage(int(driveID)); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// GetOption is exported as GetOption(i, s) -> (s).
func (c *DBusChannel) GetOption(driveID int32, name string) (string, *dbus.Error) {
	v, err := c.inner.GetOption(int(driveID), name)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return v, nil
}

// SetOption is exported as SetOption(i, s, s) -> (nothing).
func (c *DBusChannel) SetOption(driveID int32, name, value string) *dbus.Error {
	if err := c.inner.SetOption(int(driveID), name, value); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}
