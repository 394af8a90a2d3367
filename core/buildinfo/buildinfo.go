package buildinfo

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/eventbot/core/buildinfo.Version=v1.0.0'
//	-X 'github.com/m3rciful/eventbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/eventbot/core/buildinfo.Date=2026-04-01T12:00:00Z'
var (
	// Version reports the release tag the binary was built from.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)
