// Package buildinfo carries release metadata stamped in with
// -ldflags "-X github.com/bankline-dev/bankline/internal/buildinfo.Version=...".
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Summary is the text printed by bankline --version.
func Summary() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
