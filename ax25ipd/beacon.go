package ax25ipd

import "time"

// beaconTimer schedules the identification beacon.  The zero last time
// makes the first check after a reset fire at once.
type beaconTimer struct {
	interval time.Duration
	mode     BeaconMode
	last     time.Time
}

func newBeaconTimer(cfg *BeaconConfig) *beaconTimer {
	return &beaconTimer{
		interval: cfg.Interval,
		mode:     cfg.Mode,
	}
}

// due reports whether a beacon should be sent now, and if so starts the
// next interval.
func (bt *beaconTimer) due(now time.Time) bool {
	if bt.interval <= 0 {
		return false
	}
	if !bt.last.IsZero() && now.Sub(bt.last) < bt.interval {
		return false
	}
	bt.last = now
	return true
}

// heard notes traffic on the radio channel.  In "after" mode this
// postpones the next beacon by a full interval.
func (bt *beaconTimer) heard(now time.Time) {
	if bt.mode == BeaconAfter && !bt.last.IsZero() {
		bt.last = now
	}
}

// wait returns how long until the next beacon is due, or max if that is
// sooner.
func (bt *beaconTimer) wait(now time.Time, max time.Duration) time.Duration {
	if bt.interval <= 0 {
		return max
	}
	d := bt.interval - now.Sub(bt.last)
	if d < 0 {
		d = 0
	}
	if d < max {
		return d
	}
	return max
}

func (bt *beaconTimer) reset() {
	bt.last = time.Time{}
}
