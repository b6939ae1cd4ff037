// Package buildinfo carries version metadata stamped by the linker:
//
//	go build -ldflags "-X github.com/m3rciful/shopbot/core/buildinfo.Version=v1.0.0 \
//	  -X github.com/m3rciful/shopbot/core/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
	// Date is RFC3339; empty for local builds.
	Date = ""
)

// String formats the metadata for logs, e.g. "v1.0.0 (abc1234)".
func String() string {
	s := Version + " (" + Commit + ")"
	if Date != "" {
		s += " " + Date
	}
	return s
}
