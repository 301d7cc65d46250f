package simulator

// Faults configures failure injection. Exchange and block counters are
// 1-based; zero disables a fault.
type Faults struct {
	// StallAt reports busy for StallReads status reads after this exchange
	StallAt    int
	StallReads int

	// DropAt stops acknowledging on this exchange until the link is resynced
	DropAt int

	// CorruptRead spoils the checksum of this FFE read block
	CorruptRead int

	// RefuseSyncs ignores this many resync sequences
	RefuseSyncs int

	// FailErase marks this flash erase (1-based) as failed
	FailErase int
}

// injector tracks fault state for one device.
type injector struct {
	f         Faults
	exchanges int
	reads     int
	stall     int
	hung      bool
	refused   int
	dropped   bool
}

// exchange accounts one byte exchange. It returns false when the device
// must not acknowledge it.
func (i *injector) exchange() bool {
	if i.hung {
		return false
	}
	i.exchanges++
	if i.f.DropAt > 0 && !i.dropped && i.exchanges == i.f.DropAt {
		i.dropped = true
		i.hung = true
		return false
	}
	if i.f.StallAt > 0 && i.exchanges == i.f.StallAt {
		i.stall = i.f.StallReads
	}
	return true
}

// stalled consumes one stalled status read.
func (i *injector) stalled() bool {
	if i.hung {
		return true
	}
	if i.stall > 0 {
		i.stall--
		return true
	}
	return false
}

// readBlock accounts one read block and reports whether to corrupt it.
func (i *injector) readBlock() bool {
	i.reads++
	return i.f.CorruptRead > 0 && i.reads == i.f.CorruptRead
}

// sync reports whether a resync sequence is honoured.
func (i *injector) sync() bool {
	if i.refused < i.f.RefuseSyncs {
		i.refused++
		return false
	}
	i.hung = false
	i.stall = 0
	return true
}
