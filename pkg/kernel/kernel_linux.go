//go:build linux

package kernel

import (
	"bytes"
	"golang.org/x/sys/unix"
	"sync"
)

var (
	version     = Version{}
	versionOnce = sync.Once{}
)

// Get returns the running kernel version, read once from uname(2).
func Get() Version {
	versionOnce.Do(func() {
		uts := &unix.Utsname{}
		if err := unix.Uname(uts); err != nil {
			return
		}
		release := uts.Release[:]
		if n := bytes.IndexByte(release, 0); n >= 0 {
			release = release[:n]
		}
		if v, err := Parse(string(release)); err == nil {
			version = v
		}
	})
	return version
}
