// Package buildinfo holds version information injected at build time:
//
//	go build -ldflags "-X github.com/loganszeto/udpkv/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	Version = "dev"
	Commit  = "unknown"
)

func String() string {
	return Version + " (" + Commit + ")"
}
