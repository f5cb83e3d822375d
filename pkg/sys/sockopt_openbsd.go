//go:build openbsd

package sys

// openbsd only tunes keepalive system wide
func setKeepAliveIdle(_ int, _ int) error {
	return nil
}
