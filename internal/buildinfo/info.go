// Package buildinfo carries version details stamped in at link time:
//
//	go build -ldflags "-X github.com/lab-banks/banks/internal/buildinfo.Version=v1.2.0"
package buildinfo

import "fmt"

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the source revision.
	Commit = "none"
	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the details for --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
