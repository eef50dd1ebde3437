// hooksink - configurable HTTP endpoint simulator with delayed webhook sequences.
package main

import "github.com/hooksink/hooksink/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
