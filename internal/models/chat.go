package models

import "time"

// Chat is a one-to-one session between two distinct users. The unordered
// participant pair is unique: participants are stored in normalized order
// (ParticipantA < ParticipantB) so the database can enforce it.
type Chat struct {
	ID           int64     `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
	Messages     []Message `json:"messages,omitempty"`
}

func (c *Chat) Participants() []string {
	return []string{c.ParticipantA, c.ParticipantB}
}

func (c *Chat) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Chat) OtherParticipant(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// NormalizePair orders a user pair so {a,b} and {b,a} map to the same row.
func NormalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
