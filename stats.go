package coap

import "sync/atomic"

// Stats are running counters exposed by a Datagram Engine (SPEC_FULL.md
// section 3, "Stats resource" - grounded on soscoap's stats_reader.py
// client, which polls a /stats resource for these same four counters).
type Stats struct {
	sent      uint64
	received  uint64
	dropped   uint64
	malformed uint64
}

func (s *Stats) incSent()      { atomic.AddUint64(&s.sent, 1) }
func (s *Stats) incReceived()  { atomic.AddUint64(&s.received, 1) }
func (s *Stats) incDropped()   { atomic.AddUint64(&s.dropped, 1) }
func (s *Stats) incMalformed() { atomic.AddUint64(&s.malformed, 1) }

// Snapshot is a point-in-time, race-free copy of the counters.
type Snapshot struct {
	Sent      uint64 `json:"sent"`
	Received  uint64 `json:"received"`
	Dropped   uint64 `json:"dropped"`
	Malformed uint64 `json:"malformed"`
}

// Snapshot reads the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Sent:      atomic.LoadUint64(&s.sent),
		Received:  atomic.LoadUint64(&s.received),
		Dropped:   atomic.LoadUint64(&s.dropped),
		Malformed: atomic.LoadUint64(&s.malformed),
	}
}
