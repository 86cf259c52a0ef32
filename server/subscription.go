package server

import (
	"time"

	"github.com/wippyai/opc-classic/resource"
)

// kick wakes the update loop so a changed rate or activation takes
// effect at once.
func (g *Group) kick() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// tick returns the loop period for an update rate and keep-alive, both in
// milliseconds.
func tick(updateRate, keepAlive uint32) time.Duration {
	d := time.Duration(updateRate) * time.Millisecond
	if keepAlive > 0 && (updateRate == 0 || keepAlive < updateRate) {
		d = time.Duration(keepAlive) * time.Millisecond
	}
	return max(d, minTick)
}

// loop submits a poll at the group's update rate until stop is closed.
// At most one poll is queued at a time.
func (g *Group) loop(stop <-chan struct{}) {
	for {
		g.mu.Lock()
		d := tick(g.st.updateRate, g.st.keepAlive)
		g.mu.Unlock()

		timer := time.NewTimer(d)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-g.wake:
			timer.Stop()
		case <-timer.C:
		}

		if g.pending.CompareAndSwap(false, true) {
			g.exec.Submit(func() {
				defer g.pending.Store(false)
				g.Poll()
			})
		}
	}
}

// resetLastSent makes every item due on the next poll. The caller holds
// g.mu.
func (g *Group) resetLastSent() {
	g.items.Each(func(_ resource.Handle, _ string, it *item) bool {
		it.sent = false
		return true
	})
}

// Poll runs one update cycle. When the group is active, OnDataChange is
// enabled and a data callback is advised, active items whose sample
// changed since they were last sent go out in one OnDataChange with
// transaction id 0. Numeric changes within the percent deadband of an
// analog item's EU range are suppressed. With a keep-alive set, an empty
// OnDataChange goes out once nothing was sent for the keep-alive period.
func (g *Group) Poll() {
	if _, ok := g.callback(); !ok {
		return
	}
	now := g.server.opts.Clock()

	g.mu.Lock()
	if g.dropped || !g.st.active || !g.enabled {
		g.mu.Unlock()
		return
	}
	var ups []update
	deadband := g.st.deadband
	g.items.Each(func(_ resource.Handle, _ string, it *item) bool {
		if !it.active || !it.due(now) {
			return true
		}
		smp, code := it.sample()
		if !it.changed(smp, deadband) {
			return true
		}
		it.markSent(smp)
		ups = append(ups, update{clientHandle: it.clientHandle, sample: smp, code: code})
		return true
	})
	if len(ups) == 0 {
		keepAlive := time.Duration(g.st.keepAlive) * time.Millisecond
		if keepAlive == 0 || now.Sub(g.lastSend) < keepAlive {
			g.mu.Unlock()
			return
		}
	}
	g.lastSend = now
	cg := g.st.clientGroup
	g.mu.Unlock()

	g.deliverValues(kindDataChange, 0, cg, ups)
}
