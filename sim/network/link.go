package network

import (
	"fmt"
	"math"

	"github.com/edgesim/edgesim/sim"
	"github.com/sirupsen/logrus"
)

// LinkKind is the network tier of a link.
type LinkKind int

const (
	LAN LinkKind = iota
	MAN
	WAN
	numLinkKinds
)

// LinkKinds lists the link kinds in index order.
var LinkKinds = []LinkKind{LAN, MAN, WAN}

func (k LinkKind) String() string {
	switch k {
	case LAN:
		return "LAN"
	case MAN:
		return "MAN"
	case WAN:
		return "WAN"
	default:
		return fmt.Sprintf("LinkKind(%d)", int(k))
	}
}

// ParseLinkKind converts "LAN", "MAN" or "WAN" to a LinkKind.
func ParseLinkKind(s string) (LinkKind, error) {
	for _, k := range LinkKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown link kind %q; valid: LAN, MAN, WAN", s)
}

const (
	tagLinkAdmit sim.Tag = iota + 1
	tagLinkUpdate
)

// Link is one directed network segment. It shares its capacity equally among
// its active transfers, recomputing the share on every tick.
// Its active list is mutated only from its own event handler.
type Link struct {
	ID       int
	Src, Dst *sim.Node
	Latency  float64 // seconds
	Capacity float64 // bits/s
	Kind     LinkKind

	model    *Model
	interval float64
	active   []*Transfer
	updating bool

	bitsTransferred float64
	peakActive      int
}

// NewLink creates a link. The ID is assigned when the link is added to a Graph.
func NewLink(src, dst *sim.Node, kind LinkKind, latency, capacity float64) *Link {
	return &Link{
		ID:       -1,
		Src:      src,
		Dst:      dst,
		Kind:     kind,
		Latency:  latency,
		Capacity: capacity,
	}
}

// Name implements sim.Entity.
func (l *Link) Name() string {
	return fmt.Sprintf("link-%d(%d->%d %s)", l.ID, l.Src.ID, l.Dst.ID, l.Kind)
}

// Start implements sim.Entity. Links only wake up when a transfer is admitted.
func (l *Link) Start(_ *sim.Kernel) {}

// Shutdown implements sim.Entity.
func (l *Link) Shutdown(_ *sim.Kernel) {
	if len(l.active) > 0 {
		logrus.Debugf("%s: %d transfers still active at shutdown", l.Name(), len(l.active))
	}
}

// ProcessEvent implements sim.Entity.
func (l *Link) ProcessEvent(k *sim.Kernel, ev *sim.Event) {
	switch ev.Tag() {
	case tagLinkAdmit:
		l.admit(k, ev.Payload().(*Transfer))
	case tagLinkUpdate:
		l.update(k)
	default:
		panic(fmt.Sprintf("%s: unexpected event tag %d", l.Name(), ev.Tag()))
	}
}

// Active returns the transfers currently on the link.
func (l *Link) Active() []*Transfer { return l.active }

// BitsTransferred returns the cumulative bits moved across the link.
func (l *Link) BitsTransferred() float64 { return l.bitsTransferred }

// PeakActive returns the largest number of simultaneously active transfers seen.
func (l *Link) PeakActive() int { return l.peakActive }

// FairShare returns the bandwidth each active transfer receives.
func (l *Link) FairShare() float64 {
	return l.Capacity / float64(max(len(l.active), 1))
}

// AllocatedBandwidth sums the bandwidth allocated to active transfers on the last tick.
func (l *Link) AllocatedBandwidth() float64 {
	total := 0.0
	for _, tr := range l.active {
		total += tr.Bandwidth
	}
	return total
}

func (l *Link) admit(k *sim.Kernel, tr *Transfer) {
	tr.Remaining = tr.Size
	tr.Bandwidth = 0
	l.active = append(l.active, tr)
	l.peakActive = max(l.peakActive, len(l.active))
	if !l.updating {
		l.updating = true
		k.Schedule(l, l.interval, tagLinkUpdate, nil)
	}
}

// update moves every active transfer forward by one tick.
func (l *Link) update(k *sim.Kernel) {
	share := l.FairShare()
	var finished []*Transfer
	kept := l.active[:0]
	for _, tr := range l.active {
		old := tr.Remaining
		tr.Bandwidth = share
		tr.Remaining = math.Max(0, old-l.interval*share)
		moved := old - tr.Remaining
		delay := 0.0
		if share > 0 {
			delay = moved / share
		}
		tr.addUsage(l.Kind, delay, moved)
		l.bitsTransferred += moved
		if tr.Remaining == 0 {
			finished = append(finished, tr)
		} else {
			kept = append(kept, tr)
		}
	}
	for i := len(kept); i < len(l.active); i++ {
		l.active[i] = nil
	}
	l.active = kept

	for _, tr := range finished {
		tr.Bandwidth = 0
		tr.advance()
		if tr.Arrived() {
			k.Schedule(l.model, l.Latency, tagTransferArrived, tr)
			continue
		}
		logrus.Debugf("[t=%.6f] %s: %s hops to %s", k.Clock(), l.Name(), tr, tr.CurrentLink().Name())
		k.ScheduleNow(tr.CurrentLink(), tagLinkAdmit, tr)
	}

	if len(l.active) == 0 {
		l.updating = false
		return
	}
	k.Schedule(l, l.interval, tagLinkUpdate, nil)
}
