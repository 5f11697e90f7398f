package synth

import "time"

// Timer is a single-shot rearming timer. Reset replaces any pending expiry;
// expiries never stack. Injectable so tests can drive debounce windows
// deterministically.
type Timer interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// NewTimerFunc produces fresh timers for one synthesizer run.
type NewTimerFunc func() Timer

type realTimer struct {
	t *time.Timer
}

// newRealTimer returns a stopped timer backed by the runtime clock.
func newRealTimer() Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &realTimer{t: t}
}

func (r *realTimer) C() <-chan time.Time {
	return r.t.C
}

func (r *realTimer) Reset(d time.Duration) {
	if !r.t.Stop() {
		select {
		case <-r.t.C:
		default:
		}
	}
	r.t.Reset(d)
}

func (r *realTimer) Stop() {
	if !r.t.Stop() {
		select {
		case <-r.t.C:
		default:
		}
	}
}
