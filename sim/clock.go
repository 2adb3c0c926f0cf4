package sim

// VTime is a point in logical time. It only orders operations and has no
// relation to the wall clock.
type VTime uint64

// TimeTeller can be used to get the current logical time.
type TimeTeller interface {
	CurrentTime() VTime
}

// A LogicalClock hands out strictly increasing timestamps.
type LogicalClock struct {
	now VTime
}

// CurrentTime returns the last timestamp handed out, or 0 if the clock has
// never ticked.
func (c *LogicalClock) CurrentTime() VTime {
	return c.now
}

// Tick advances the clock by one and returns the new time.
func (c *LogicalClock) Tick() VTime {
	c.now++
	return c.now
}

// Reset moves the clock back to time 0.
func (c *LogicalClock) Reset() {
	c.now = 0
}
