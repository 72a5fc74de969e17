// Package version reports build information of the gears binary.
//
// Values are stamped at link time and fall back to the VCS settings the Go
// toolchain embeds:
//
//	go build -ldflags "-X github.com/kbukum/gears/version.Version=v1.2.0" ./cmd/gears
package version
