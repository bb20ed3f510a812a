package engine

import "time"

// debouncer is a restartable timer owned by the loop goroutine. c is nil
// while the timer is idle so a select on it blocks.
type debouncer struct {
	d     time.Duration
	timer *time.Timer
	c     <-chan time.Time
}

func newDebouncer(d time.Duration) *debouncer {
	return &debouncer{d: d}
}

// reset restarts the window. Since Go 1.23 Reset discards any value the
// previous run left undelivered.
func (db *debouncer) reset() {
	if db.timer == nil {
		db.timer = time.NewTimer(db.d)
	} else {
		db.timer.Reset(db.d)
	}
	db.c = db.timer.C
}

func (db *debouncer) fired() {
	db.c = nil
}

func (db *debouncer) stop() {
	if db.timer != nil {
		db.timer.Stop()
	}
}
