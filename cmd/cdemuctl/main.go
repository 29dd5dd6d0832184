// Command cdemuctl is a CLI client for cdemud's D-Bus control channel:
// load/unload images and inspect drive state.
package main

import (
	"github.com/alecthomas/kong"
)

const (
	programName = "cdemuctl"
	programDesc = "Control a running cdemud virtual optical-drive daemon"
)

func main() {
	ctx := kong.Parse(&cli,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	cctx := &context{}
	err := ctx.Run(cctx)
	if cctx.conn != nil {
		cctx.conn.Close()
	}
	ctx.FatalIfErrorf(err)
}
