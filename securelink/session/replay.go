package session

import "sync"

// Sliding-window replay filter after RFC 6479. Bits live in a ring of
// 64-bit blocks; moving the window forward only clears the blocks it
// passes over.
const (
	replayBlockBits    = 64
	replayBlockBitsLog = 6
	replayRingBits     = 2048
	replayBlocks       = replayRingBits / replayBlockBits

	// ReplayWindow is how far behind the highest seen counter a message
	// may arrive and still be accepted.
	ReplayWindow = uint64(replayRingBits - replayBlockBits)
)

type replayWindow struct {
	mu      sync.Mutex
	highest uint64
	blocks  [replayBlocks]uint64
}

// check records counter and reports whether it was fresh. Counters older
// than the window or already seen are rejected.
func (w *replayWindow) check(counter uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if counter+ReplayWindow < w.highest {
		return false
	}

	block := counter >> replayBlockBitsLog
	if counter > w.highest {
		top := w.highest >> replayBlockBitsLog
		advance := block - top
		if advance > replayBlocks {
			advance = replayBlocks
		}
		for i := uint64(1); i <= advance; i++ {
			w.blocks[(top+i)%replayBlocks] = 0
		}
		w.highest = counter
	}

	block %= replayBlocks
	bit := uint64(1) << (counter & (replayBlockBits - 1))
	if w.blocks[block]&bit != 0 {
		return false
	}
	w.blocks[block] |= bit
	return true
}

// forget clears counter so a later copy is accepted again. The window does
// not move back; a counter that has already slid out stays rejected.
func (w *replayWindow) forget(counter uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if counter > w.highest || counter+ReplayWindow < w.highest {
		return
	}
	bit := uint64(1) << (counter & (replayBlockBits - 1))
	w.blocks[(counter>>replayBlockBitsLog)%replayBlocks] &^= bit
}
