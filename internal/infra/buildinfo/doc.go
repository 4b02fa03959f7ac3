// Package buildinfo exposes the version stamped into TradeGate binaries.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/tradegate-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Values left unset fall back to the module build information recorded by
// the Go toolchain.
package buildinfo
