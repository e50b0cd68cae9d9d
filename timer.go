package chip8

const (
	// TimerHz is the rate at which the host decrements the timers.
	TimerHz = 60
	// SystemHz is the default instruction rate, executed in TimerHz sized frames.
	SystemHz = 720
)

type timer uint8

// dec decrements the timer if it is positive and returns the new value.
func (t *timer) dec() uint8 {
	if *t > 0 {
		*t--
	}
	return uint8(*t)
}
