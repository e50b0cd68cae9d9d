package chip8

const KeyCount = 16

// Keypad is the state of the hexadecimal keypad.
type Keypad struct {
	keys [KeyCount]bool

	last    uint8 // most recent key down, used by the key wait instruction
	latched bool  // key wait observed the press and waits for the release
}

func (k *Keypad) reset() {
	*k = Keypad{}
}

func (k *Keypad) down(key uint8) {
	key &= 0xF
	k.keys[key] = true
	k.last = key
}

func (k *Keypad) up(key uint8) {
	k.keys[key&0xF] = false
}

func (k *Keypad) pressed(key uint8) bool {
	return k.keys[key&0xF]
}

// waitKey advances the press-then-release cycle of the last pressed key.
// The returned key is valid when latchedNow is set, done reports that the
// key has been released.
func (k *Keypad) waitKey() (key uint8, latchedNow, done bool) {
	held := k.keys[k.last]
	switch {
	case k.latched && !held:
		k.latched = false
		return 0, false, true
	case !k.latched && held:
		k.latched = true
		return k.last, true, false
	}
	return 0, false, false
}
