package rsock

import (
	"context"
	"github.com/brickingsoft/errors"
)

// Dial is the blocking form of Open for active sessions. It ticks the
// reactor until the session ends and returns the connected socket, which
// the caller then owns.
//
// Dial may run inside a reactor handler. Its ticks are nested, so the tick
// that invoked the handler stops dispatching once Dial returns.
// ctx and the cancellation registry are checked between ticks.
func (m *Manager) Dial(ctx context.Context, local *Endpoint, remote *Endpoint, options ...Option) (fd int, snap *Snapshot, err error) {
	fd = -1
	if remote == nil {
		err = newError(errMetaOpDial, "dial failed", ErrInvalidArgument)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		done  bool
		state State
	)
	sess, openErr := m.open(ctx, local, remote, func(_ any, sock int, s *Snapshot, _ *Session, st State) error {
		if !st.Terminal() {
			return nil
		}
		done, state, fd, snap = true, st, sock, s
		return nil
	}, nil, options...)
	if openErr != nil {
		err = newError(errMetaOpDial, "dial failed", openErr)
		return
	}

	stop := context.AfterFunc(ctx, func() {
		_ = m.r.Wakeup()
	})
	defer stop()

	for !done {
		if ctxErr := ctx.Err(); ctxErr != nil {
			_ = sess.Close()
			err = newError(errMetaOpDial, "dial failed", errors.From(ErrCanceled, errors.WithWrap(ctxErr)))
			return
		}
		if sess.canceled() {
			_ = sess.Close()
			err = newError(errMetaOpDial, "dial failed", ErrCanceled)
			return
		}
		if tickErr := m.r.Tick(); tickErr != nil {
			_ = sess.Close()
			err = newError(errMetaOpDial, "dial failed", tickErr)
			return
		}
	}
	if state != Connected {
		fd, snap = -1, nil
		err = sess.Err()
	}
	return
}
