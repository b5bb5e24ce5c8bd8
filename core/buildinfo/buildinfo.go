package buildinfo

import "strings"

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/partsbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/partsbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/partsbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
//
// Default values are useful for local dev.
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders "version (commit, date)", omitting empty parts.
func String() string {
	var extra []string
	if c := strings.TrimSpace(Commit); c != "" {
		extra = append(extra, c)
	}
	if d := strings.TrimSpace(Date); d != "" {
		extra = append(extra, d)
	}
	v := strings.TrimSpace(Version)
	if v == "" {
		v = "dev"
	}
	if len(extra) == 0 {
		return v
	}
	return v + " (" + strings.Join(extra, ", ") + ")"
}
