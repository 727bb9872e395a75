// Package session holds the immutable data model of one swarm session: the
// participants, the question being answered and the per-round arena setup.
package session

import "github.com/pthm-cable/swarm/hex"

// ServerParticipantID is the reserved id under which the backend publishes
// its own messages. Position updates from it are ignored.
const ServerParticipantID = 0

// Participant identifies one client in the session. Immutable for the
// duration of a round.
type Participant struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Question is the prompt the swarm answers during a round. The image is kept
// as raw bytes; decoding is up to the caller.
type Question struct {
	ID           int
	CollectionID string
	Prompt       string
	Answers      []string
	Image        []byte
}

// Round describes one question round. It is created when the platform
// receives the start command and is frozen from then on.
type Round struct {
	Question *Question

	// Duration is the round length in seconds as announced by the server.
	Duration float64

	Participants []Participant

	// AnswerPositions holds the arena vertex for each answer, in answer
	// order. len(AnswerPositions) == len(Question.Answers).
	AnswerPositions []hex.Vec

	// Radius is the arena circumradius. It is carried separately because
	// vertex coordinates are truncated and do not recover it exactly.
	Radius float64
}

// ParticipantIDs returns the ids of every participant in the round.
func (r *Round) ParticipantIDs() []int {
	ids := make([]int, len(r.Participants))
	for i, p := range r.Participants {
		ids[i] = p.ID
	}
	return ids
}
