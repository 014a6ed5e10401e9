package logic

import "time"

// Phase is one step of the actuator sequence: a pattern for two outputs
// held for a fixed duration.
type Phase struct {
	Label string
	A     bool
	B     bool
	Hold  time.Duration
}

// DefaultPhases is the traffic-light table: Green={1,0} 4s, Yellow={0,1} 2s,
// Red={1,1} 3s.
var DefaultPhases = []Phase{
	{Label: "Green", A: true, B: false, Hold: 4 * time.Second},
	{Label: "Yellow", A: false, B: true, Hold: 2 * time.Second},
	{Label: "Red", A: true, B: true, Hold: 3 * time.Second},
}

// PhaseCycle walks a phase table in order, wrapping at the end.
type PhaseCycle struct {
	phases []Phase
	next   int
}

// NewPhaseCycle returns a cycle positioned before the first phase.
// The table is copied so later edits to the caller's slice have no effect.
func NewPhaseCycle(phases []Phase) *PhaseCycle {
	cp := make([]Phase, len(phases))
	copy(cp, phases)
	return &PhaseCycle{phases: cp}
}

// Next returns the next phase and its index in the table.
// Panics if the table is empty.
func (c *PhaseCycle) Next() (int, Phase) {
	i := c.next
	c.next = (c.next + 1) % len(c.phases)
	return i, c.phases[i]
}

// Len returns the number of phases in the table.
func (c *PhaseCycle) Len() int {
	return len(c.phases)
}
