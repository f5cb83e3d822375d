//go:build !linux

package process

// Pin is a no-op for negative cpu and fails otherwise.
func Pin(cpu int) (unpin func(), err error) {
	unpin = func() {}
	if cpu >= 0 {
		err = ErrUnsupported
	}
	return
}

func Pinned() ([]int, error) {
	return nil, ErrUnsupported
}
