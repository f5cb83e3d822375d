//go:build !linux

package kernel

// Get returns an invalid version, only linux releases are parsed.
func Get() Version {
	return Version{}
}
