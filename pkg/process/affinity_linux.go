//go:build linux

package process

import (
	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
	"runtime"
	"strconv"
)

// Pin locks the calling goroutine to its OS thread and restricts that thread
// to cpu. Negative cpu is a no-op. The returned func undoes the thread lock.
func Pin(cpu int) (unpin func(), err error) {
	unpin = func() {}
	if cpu < 0 {
		return
	}
	if cpu >= runtime.NumCPU() {
		err = errors.From(ErrInvalidCPU, errors.WithMeta("cpu", strconv.Itoa(cpu)))
		return
	}
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	// pid 0 is the calling thread
	if err = unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		err = errors.From(ErrUnsupported, errors.WithWrap(err))
		return
	}
	unpin = runtime.UnlockOSThread
	return
}

// Pinned reports the CPUs the calling thread may run on.
func Pinned() (cpus []int, err error) {
	var set unix.CPUSet
	if err = unix.SchedGetaffinity(0, &set); err != nil {
		return
	}
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return
}
