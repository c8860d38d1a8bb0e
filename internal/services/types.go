package services

import "time"

// Role is the privilege tier granted by the access code used at login.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
)

// Category is one of the three fixed pillars every pain and emotion
// tally belongs to. The set is closed; nothing extends it at runtime.
type Category string

const (
	CategoryProcesses  Category = "Processes"
	CategoryPeople     Category = "People"
	CategoryTechnology Category = "Technology"
)

// Categories returns the pillars in display order.
func Categories() []Category {
	return []Category{CategoryProcesses, CategoryPeople, CategoryTechnology}
}

// ValidCategory reports whether c is one of the three pillars.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryProcesses, CategoryPeople, CategoryTechnology:
		return true
	}
	return false
}

// Reaction is an emotional vote on a pillar. ReactionNone means the
// session has not cast one for that pillar yet.
type Reaction string

const (
	ReactionHappy   Reaction = "happy"
	ReactionNeutral Reaction = "neutral"
	ReactionSad     Reaction = "sad"
	ReactionNone    Reaction = ""
)

// ValidReaction reports whether r can be cast as a vote.
func ValidReaction(r Reaction) bool {
	switch r {
	case ReactionHappy, ReactionNeutral, ReactionSad:
		return true
	}
	return false
}

// AnonymousAuthor is substituted when a pain is submitted without a name.
const AnonymousAuthor = "Anonymous"

// Pain is a single submitted pain point. Votes and HasVoted are round
// state: ResetRound zeroes them while the text survives.
type Pain struct {
	ID          string   `json:"id"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Votes       int      `json:"votes"`
	HasVoted    bool     `json:"has_voted"`
}

// EmotionCounts tallies the emotional votes cast on one pillar.
type EmotionCounts struct {
	Happy   int `json:"happy"`
	Neutral int `json:"neutral"`
	Sad     int `json:"sad"`
}

// Total is the number of distinct sessions that currently hold a
// reaction on the pillar.
func (c EmotionCounts) Total() int { return c.Happy + c.Neutral + c.Sad }

func (c *EmotionCounts) add(r Reaction, delta int) {
	var n *int
	switch r {
	case ReactionHappy:
		n = &c.Happy
	case ReactionNeutral:
		n = &c.Neutral
	case ReactionSad:
		n = &c.Sad
	default:
		return
	}
	*n += delta
	if *n < 0 {
		*n = 0
	}
}

// BoardStats are the aggregate counters shown at the top of the board.
type BoardStats struct {
	TotalPains        int `json:"total_pains"`
	TotalVotes        int `json:"total_votes"`
	TotalEmotionVotes int `json:"total_emotion_votes"`
	TopPainVotes      int `json:"top_pain_votes"`
}

// SessionRecord is the single opaque record the session manager
// externalizes to its durable store.
type SessionRecord struct {
	IssuedAt time.Time `json:"issued_at"`
	Role     Role      `json:"role"`
}
