// Package buildinfo exposes the trayctl version stamped at link time.
//
//	go build -ldflags "-X github.com/yndnr/trayctl/internal/infra/buildinfo.Version=v0.3.0 \
//	  -X github.com/yndnr/trayctl/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// The version is also written into every snapshot as tool_version.
package buildinfo
