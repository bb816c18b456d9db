// Package buildinfo holds build-time metadata injected via linker flags,
// kept separate from internal/config since it isn't user-configurable.
package buildinfo

// Version and BuildDate are set at link time via:
//
//	go build -ldflags "-X github.com/chunkcast/chunkcast/internal/buildinfo.Version=... -X github.com/chunkcast/chunkcast/internal/buildinfo.BuildDate=..."
var (
	Version   = "dev"
	BuildDate = "unknown"
)
