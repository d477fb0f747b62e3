package raknet

// Reliability is the single descriptor used everywhere in this package:
// a plain reliable flag plus independent ordered/sequenced flags, each
// keyed to one of 32 ordering channels. mode maps the combination onto
// the wire's five reliability modes.
type Reliability struct {
	Reliable  bool
	Ordered   bool
	Sequenced bool
	Channel   uint8
}

// ReliableOrderedOn is the common case: a reliable, strictly ordered
// delivery on the given channel.
func ReliableOrderedOn(channel uint8) Reliability {
	return Reliability{Reliable: true, Ordered: true, Channel: channel}
}

// UnreliableDescriptor is fire-and-forget delivery, no ordering.
func UnreliableDescriptor() Reliability {
	return Reliability{}
}

// mode maps a Reliability back onto the wire's 3-bit reliability mode.
func (r Reliability) mode() uint8 {
	switch {
	case r.Reliable && r.Ordered:
		return ReliableOrdered
	case r.Reliable && r.Sequenced:
		return ReliableSequenced
	case r.Reliable:
		return Reliable
	case r.Sequenced:
		return UnreliableSequenced
	default:
		return Unreliable
	}
}

func modeToReliability(mode uint8, channel uint8) Reliability {
	switch mode {
	case Reliable:
		return Reliability{Reliable: true, Channel: channel}
	case ReliableOrdered:
		return Reliability{Reliable: true, Ordered: true, Channel: channel}
	case ReliableSequenced:
		return Reliability{Reliable: true, Sequenced: true, Channel: channel}
	case UnreliableSequenced:
		return Reliability{Sequenced: true, Channel: channel}
	default:
		return Reliability{Channel: channel}
	}
}
