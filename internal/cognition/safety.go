package cognition

// SafetyConfig bounds how far the cognitive layer may steer a run. The
// values are fixed at startup and never mutated mid-run.
type SafetyConfig struct {
	MaxFixLines                     int
	MaxBacktrackDepth               int
	MaxDeliberationsWithoutProgress int
}

// DefaultSafety returns the stock limits.
func DefaultSafety() SafetyConfig {
	return SafetyConfig{
		MaxFixLines:                     50,
		MaxBacktrackDepth:               5,
		MaxDeliberationsWithoutProgress: 3,
	}
}

// Normalize fills non-positive fields with the defaults.
func (c SafetyConfig) Normalize() SafetyConfig {
	d := DefaultSafety()
	if c.MaxFixLines <= 0 {
		c.MaxFixLines = d.MaxFixLines
	}
	if c.MaxBacktrackDepth <= 0 {
		c.MaxBacktrackDepth = d.MaxBacktrackDepth
	}
	if c.MaxDeliberationsWithoutProgress <= 0 {
		c.MaxDeliberationsWithoutProgress = d.MaxDeliberationsWithoutProgress
	}
	return c
}
