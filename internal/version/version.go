// ABOUTME: Version and product constants
// ABOUTME: Reported by binaries, the gateway hello and mDNS TXT records
package version

const (
	Version      = "0.3.0"
	Product      = "fifoplay"
	Manufacturer = "Resonate Protocol"
)
