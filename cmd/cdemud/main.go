// Command cdemud is the virtual optical-drive daemon: it wires N drives,
// each backed by a VHBA transport and an MMC dispatcher, exports load/
// unload control over D-Bus, and serves Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/cdemu-project/cdemu-go/internal/orchestrator"
	"github.com/cdemu-project/cdemu-go/internal/vhba"
	"github.com/cdemu-project/cdemu-go/internal/vhbahost"
)

var (
	numDrives    = flag.Int("drives", 1, "Number of virtual drives to create")
	transport    = flag.String("transport", "inproc", "Drive transport: inproc (in-process reference VHBA engine) or chardev (real /dev/vhba_ctl)")
	vhbaPath     = flag.String("vhba-path", "/dev/vhba_ctl", "Character device node to open once per drive when -transport=chardev")
	canQueue     = flag.Int("can-queue", 32, "Command pool size per in-process drive (only used with -transport=inproc)")
	vendor       = flag.String("vendor", "CDEmu", "INQUIRY vendor string every drive reports")
	product      = flag.String("product", "Virt. CD/DVD-ROM", "INQUIRY product string every drive reports")
	revision     = flag.String("revision", "1.10", "INQUIRY revision string every drive reports")
	enableDBus   = flag.Bool("dbus", true, "Export the control channel on the D-Bus session bus")
	metricsAddr  = flag.String("metrics-addr", ":9149", "Address to serve /metrics on; empty disables it")
	loadAtStart  = flag.String("load", "", "Comma-separated image paths to load into drives 0..N-1 at startup")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(pickFormatter())

	o := orchestrator.New(orchestrator.WithIdentity(*vendor, *product, *revision))
	ctx := o.Start()

	if err := attachDrives(ctx, o); err != nil {
		logrus.WithError(err).Fatal("attaching drives")
	}

	if *loadAtStart != "" {
		loadInitialImages(o, *loadAtStart)
	}

	var dbusConn *dbus.Conn
	var dbusChan *orchestrator.DBusChannel
	if *enableDBus {
		var err error
		dbusConn, dbusChan, err = exportControlChannel(o)
		if err != nil {
			logrus.WithError(err).Warn("dbus: control channel not exported; continuing without it")
		}
	}

	var metricsServer *http.Server
	if *metricsAddr != "" {
		metricsServer = startMetricsServer(*metricsAddr, o)
	}

	logrus.WithField("drives", *numDrives).Info("cdemud running")
	waitForShutdown()

	logrus.Info("shutting down")
	if metricsServer != nil {
		metricsServer.Shutdown(context.Background())
	}
	if dbusChan != nil {
		dbusChan.Close()
	}
	if dbusConn != nil {
		dbusConn.Close()
	}
	if err := o.Close(); err != nil {
		logrus.WithError(err).Warn("closing orchestrator")
	}
}

// pickFormatter chooses a human-readable text formatter when stdout is
// attached to a terminal and a structured JSON formatter otherwise (e.g.
// running under systemd or redirected to a log file), checking the file
// mode directly rather than pulling in a terminal-detection library this
// daemon has no other use for.
func pickFormatter() logrus.Formatter {
	if fi, err := os.Stdout.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		return &logrus.TextFormatter{FullTimestamp: true}
	}
	return &logrus.JSONFormatter{}
}

// attachDrives creates *numDrives transports of the configured kind and
// registers each with o.
func attachDrives(ctx context.Context, o *orchestrator.Orchestrator) error {
	for i := 0; i < *numDrives; i++ {
		var t vhba.Transport
		var err error
		switch *transport {
		case "inproc":
			t = vhbahost.NewHost(*canQueue, vhba.IdentInfo{HostNo: 0, Bus: 0, ID: uint32(i)}, vhba.DevNum(0, uint32(i)))
		case "chardev":
			t, err = openChardevTransport(*vhbaPath)
		default:
			return fmt.Errorf("unknown -transport %q (want inproc or chardev)", *transport)
		}
		if err != nil {
			return fmt.Errorf("drive %d: %w", i, err)
		}
		o.AddDrive(ctx, t)
	}
	return nil
}

func loadInitialImages(o *orchestrator.Orchestrator, csv string) {
	paths := splitNonEmpty(csv, ',')
	for i, p := range paths {
		if i >= *numDrives {
			logrus.WithField("path", p).Warn("more -load paths than drives; ignoring the rest")
			break
		}
		if err := o.LoadImage(i, []string{p}, orchestrator.LoadOptions{}); err != nil {
			logrus.WithError(err).WithField("drive", i).Error("loading startup image")
		}
	}
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// exportControlChannel connects to the D-Bus session bus and exports o's
// ControlChannel methods under the well-known CDEmu daemon name.
func exportControlChannel(o *orchestrator.Orchestrator) (*dbus.Conn, *orchestrator.DBusChannel, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	ch, err := orchestrator.ExportDBus(conn, o)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	logrus.WithField("bus-name", orchestrator.BusName).Info("exported control channel on session bus")
	return conn, ch, nil
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
