package cli

import "fmt"

var (
	// Version contains the application version number. It's set via ldflags
	// when building.
	Version = ""

	// CommitSHA contains the SHA of the commit that this application was built
	// against. It's set via ldflags when building.
	CommitSHA = ""
)

// BuildVersion returns the version string shown by --version and the web API.
func BuildVersion() string {
	version := Version
	if version == "" {
		version = "dev"
	}
	if CommitSHA == "" {
		return version
	}
	return fmt.Sprintf("%s (%s)", version, CommitSHA)
}

// Globals defines global flags available to all commands.
type Globals struct {
	Config    string `help:"Configuration file (defaults to stockcard.yaml when present)." short:"c" type:"path"`
	Book      string `help:"Book file to use instead of the configured backend." short:"b" type:"path"`
	Telemetry bool   `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	Show     ShowCmd     `cmd:"" help:"Show the entries and balances of a stock card."`
	Allocate AllocateCmd `cmd:"" help:"Source a stock card entry from an inventory report."`
	Remove   RemoveCmd   `cmd:"" help:"Remove entries from a stock card."`
	Seed     SeedCmd     `cmd:"" help:"Create stock card entries from issued reports."`
	Verify   VerifyCmd   `cmd:"" help:"Check stock card balances against their inventory reports."`
	Export   ExportCmd   `cmd:"" help:"Export a stock card as XLSX or PDF."`
	Web      WebCmd      `cmd:"" help:"Start the HTTP API server."`
	Migrate  MigrateCmd  `cmd:"" help:"Manage the Postgres schema and import books."`
	Doctor   DoctorCmd   `cmd:"" help:"Doctor utilities for debugging books and stock cards."`
}
