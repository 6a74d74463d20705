package ecs

// Clock is the minimal frame/time source a World carries. Frame is a
// monotonically increasing counter; DeltaSeconds is whatever the caller
// last reported via NextFrame, defaulting to zero until then.
type Clock struct {
	frame        uint64
	deltaSeconds float64
}

// Frame returns the current frame number. It starts at zero before the
// first NextFrame call.
func (c Clock) Frame() uint64 { return c.frame }

// DeltaSeconds returns the delta-time passed to the most recent NextFrame
// call.
func (c Clock) DeltaSeconds() float64 { return c.deltaSeconds }

// Frame returns the world clock's current frame number.
func (w *World) Frame() uint64 { return w.clock.Frame() }

// DeltaSeconds returns the world clock's most recently reported delta-time.
func (w *World) DeltaSeconds() float64 { return w.clock.DeltaSeconds() }

// NextFrame advances the frame counter and records dt as the delta-time
// for systems that consume it. No system execution happens here; it only
// updates the clock.
func (w *World) NextFrame(dt float64) uint64 {
	w.clock.frame++
	w.clock.deltaSeconds = dt
	return w.clock.frame
}
