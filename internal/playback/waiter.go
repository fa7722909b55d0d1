package playback

import (
	"bufio"
	"io"
	"time"

	"github.com/sergeknystautas/ttyplay/internal/input"
	"github.com/sergeknystautas/ttyplay/internal/ttytime"
)

// clampNonNegative mirrors the "clamping non-negative" wording of
// spec.md §5's drift-correction paragraph: a wait request can never go
// negative, even when accumulated drift exceeds the requested delay.
func clampNonNegative(v ttytime.Value) ttytime.Value {
	if v.Sec < 0 {
		return ttytime.Value{}
	}
	return v
}

// adjustForDrift computes the actual duration to sleep for, given the
// record-implied delay and the signed drift carried from prior waits.
func adjustForDrift(requested, drift ttytime.Value) ttytime.Value {
	return clampNonNegative(ttytime.Subtract(requested, drift))
}

// updateDrift computes the new drift after a wait that was asked to run
// for requested but actually measured actual.
func updateDrift(requested, actual ttytime.Value) ttytime.Value {
	return ttytime.Subtract(requested, actual)
}

// RealWaiter is the production Waiter: it sleeps in real time, scaled by
// speed, waking early if a byte becomes available on a background stdin
// reader. Pause (speed < 0) sleeps indefinitely until a key arrives.
type RealWaiter struct {
	keys  <-chan byte
	errs  <-chan error
	dec   *input.Decoder
	drift ttytime.Value
}

// NewRealWaiter starts a background goroutine reading single bytes from
// r (typically the raw-mode stdin) into an internal channel, so Wait can
// select between "time elapsed" and "a key is ready" without blocking
// the rest of the read path on either. jumpBase/jumpScale configure the
// arrow-key seek magnitudes decoded commands carry; pass 0 for both to
// use the built-in defaults.
func NewRealWaiter(r io.ByteReader, jumpBase, jumpScale int) *RealWaiter {
	keys := make(chan byte)
	errs := make(chan error, 1)
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				errs <- err
				return
			}
			keys <- b
		}
	}()
	return &RealWaiter{keys: keys, errs: errs, dec: input.NewDecoder(jumpBase, jumpScale)}
}

// Wait implements Waiter. When the caller's speed is negative (paused),
// it blocks on the key channel alone — no timer is ever armed, so the
// wait genuinely never returns until a key arrives — matching spec.md
// §5's pause contract. Otherwise requested is scaled by 1/|speed| before
// sleeping: faster playback means shorter real waits.
func (w *RealWaiter) Wait(requested ttytime.Value, speed float64) (input.Command, error) {
	paused := speed < 0
	if paused {
		speed = -speed
	}
	if speed == 0 {
		speed = 1.0
	}

	if paused {
		select {
		case b, ok := <-w.keys:
			if !ok {
				return input.Command{}, io.EOF
			}
			w.drift = ttytime.Value{}
			reader := &chanByteReader{keys: w.keys, errs: w.errs, first: b, hasFirst: true}
			return w.dec.Decode(reader, speed)
		case err := <-w.errs:
			return input.Command{}, err
		}
	}

	scaled := ttytime.DivideBy(requested, speed)
	toSleep := adjustForDrift(scaled, w.drift)
	duration := time.Duration(ttytime.Seconds(toSleep) * float64(time.Second))

	start := time.Now()
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case b, ok := <-w.keys:
		if !ok {
			return input.Command{}, io.EOF
		}
		w.drift = ttytime.Value{}
		reader := &chanByteReader{keys: w.keys, errs: w.errs, first: b, hasFirst: true}
		return w.dec.Decode(reader, speed)
	case err := <-w.errs:
		return input.Command{}, err
	case <-timer.C:
		actual := ttytime.FromSeconds(time.Since(start).Seconds())
		w.drift = updateDrift(scaled, actual)
		return input.Command{Kind: input.None}, nil
	}
}

// NoWaitWaiter implements -n: it never sleeps, regardless of requested or
// speed. Any byte already buffered on r is decoded and returned
// immediately so quit/navigation keys still work in no-wait mode; if none
// is available it returns input.None without blocking.
type NoWaitWaiter struct {
	r   *bufio.Reader
	dec *input.Decoder
}

// NewNoWaitWaiter wraps r for non-blocking command polling. jumpBase/
// jumpScale configure the arrow-key seek magnitudes decoded commands
// carry; pass 0 for both to use the built-in defaults.
func NewNoWaitWaiter(r *bufio.Reader, jumpBase, jumpScale int) *NoWaitWaiter {
	return &NoWaitWaiter{r: r, dec: input.NewDecoder(jumpBase, jumpScale)}
}

func (w *NoWaitWaiter) Wait(requested ttytime.Value, speed float64) (input.Command, error) {
	if w.r.Buffered() == 0 {
		return input.Command{Kind: input.None}, nil
	}
	return w.dec.Decode(w.r, speed)
}

// chanByteReader adapts the background key channel to input.ByteReader,
// replaying a byte already pulled off the channel (by Wait's select)
// before reading further ones for multi-byte escape sequences.
type chanByteReader struct {
	keys     <-chan byte
	errs     <-chan error
	first    byte
	hasFirst bool
}

func (c *chanByteReader) ReadByte() (byte, error) {
	if c.hasFirst {
		c.hasFirst = false
		return c.first, nil
	}
	select {
	case b, ok := <-c.keys:
		if !ok {
			return 0, io.EOF
		}
		return b, nil
	case err := <-c.errs:
		return 0, err
	}
}
