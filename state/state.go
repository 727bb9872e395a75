// Package state fans in decoded participant positions from the bus thread
// and hands immutable point-in-time snapshots to the simulation thread.
package state

import (
	"sync"

	"github.com/pthm-cable/swarm/hex"
)

// State tracks the current decoded position of every participant in a round.
// It is the only piece of the runtime mutated from two goroutines: the bus
// reader writes through Update while the game loop reads through Snapshot.
type State struct {
	mu        sync.Mutex
	codec     *hex.Codec
	clientID  int
	positions map[int]hex.Vec
}

// New builds the state for a round. Every participant starts at the origin.
// The key set is fixed for the lifetime of the round.
func New(codec *hex.Codec, participantIDs []int, clientID int) *State {
	positions := make(map[int]hex.Vec, len(participantIDs))
	for _, id := range participantIDs {
		positions[id] = hex.Vec{}
	}
	return &State{
		codec:     codec,
		clientID:  clientID,
		positions: positions,
	}
}

// Update stores the decoded position of one participant. Ids that are not
// part of the round are dropped so the key set never grows.
func (s *State) Update(participantID int, encoded []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[participantID]; !ok {
		return
	}
	s.positions[participantID] = s.codec.Decode(encoded)
}

// Snapshot copies the current positions under the lock. The returned
// snapshot is unaffected by later updates.
func (s *State) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[int]hex.Vec, len(s.positions))
	for id, pos := range s.positions {
		positions[id] = pos
	}
	return &Snapshot{positions: positions, clientID: s.clientID}
}

// Snapshot is an immutable copy of the shared state taken at one instant.
// Its lifetime is one tick of user code; it is never written after creation.
type Snapshot struct {
	positions map[int]hex.Vec
	clientID  int
}

// All returns the position of every participant, the local client included.
// The map must be treated as read-only.
func (sn *Snapshot) All() map[int]hex.Vec { return sn.positions }

// Others returns the positions of every participant except the local client.
func (sn *Snapshot) Others() map[int]hex.Vec {
	others := make(map[int]hex.Vec, len(sn.positions))
	for id, pos := range sn.positions {
		if id != sn.clientID {
			others[id] = pos
		}
	}
	return others
}

// Position returns the position of one participant and whether it is part of
// the round.
func (sn *Snapshot) Position(participantID int) (hex.Vec, bool) {
	pos, ok := sn.positions[participantID]
	return pos, ok
}
