// Package env provides the identity of the host running the module.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

const (
	appID    = "rtio"
	idLength = 12
)

// DeviceID returns a stable identifier of this module instance derived
// from the machine id, so the raw machine id never leaves the host.
// It falls back to the hostname when no machine id is available.
func DeviceID() string {
	if id, err := machineid.ProtectedID(appID); err == nil && len(id) >= idLength {
		return id[:idLength]
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return appID
}
