package services

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// BoardService owns the collaborative board: the pain entries of the
// three pillars, the per-pillar emotion tallies, and the local voter's
// reaction state. Admin-only operations take the caller's privilege as
// an explicit argument; the board never reaches into the session.
type BoardService struct {
	mu        sync.RWMutex
	pains     map[string]*Pain
	order     map[Category][]string
	tallies   map[Category]*EmotionCounts
	reactions map[Category]Reaction
	newID     func() string
}

func NewBoardService() *BoardService {
	b := &BoardService{
		pains:     map[string]*Pain{},
		order:     map[Category][]string{},
		tallies:   map[Category]*EmotionCounts{},
		reactions: map[Category]Reaction{},
		newID:     uuid.NewString,
	}
	for _, c := range Categories() {
		b.order[c] = []string{}
		b.tallies[c] = &EmotionCounts{}
		b.reactions[c] = ReactionNone
	}
	return b
}

// AddPain records a new pain at the head of its pillar's list. A blank
// author is stored as AnonymousAuthor; the description is required.
func (b *BoardService) AddPain(author, description string, category Category) (*Pain, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, NewInvalidError("description required")
	}
	if !ValidCategory(category) {
		return nil, NewInvalidError("unknown category")
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = AnonymousAuthor
	}
	p := &Pain{
		ID:          b.newID(),
		Author:      author,
		Description: description,
		Category:    category,
	}
	b.mu.Lock()
	b.pains[p.ID] = p
	b.order[category] = append([]string{p.ID}, b.order[category]...)
	b.mu.Unlock()
	out := *p
	return &out, nil
}

// Vote adds the session's vote to a pain. At most one vote per pain
// per session: repeat calls are no-ops.
func (b *BoardService) Vote(id string) (*Pain, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pains[id]
	if !ok {
		return nil, NewNotFoundError("pain not found")
	}
	if !p.HasVoted {
		p.Votes++
		p.HasVoted = true
	}
	out := *p
	return &out, nil
}

// DeletePain removes a pain entirely. Admin only.
func (b *BoardService) DeletePain(id string, admin bool) error {
	if !admin {
		return NewForbiddenError("admin required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pains[id]
	if !ok {
		return NewNotFoundError("pain not found")
	}
	delete(b.pains, id)
	ids := b.order[p.Category]
	for i, pid := range ids {
		if pid == id {
			b.order[p.Category] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// Reorder moves a pain to target within its own pillar's manual order.
// Pillar membership is fixed at creation, so the move never crosses
// lists. Out-of-range targets and moves to the current position are
// no-ops.
func (b *BoardService) Reorder(id string, target int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pains[id]
	if !ok {
		return NewNotFoundError("pain not found")
	}
	ids := b.order[p.Category]
	cur := -1
	for i, pid := range ids {
		if pid == id {
			cur = i
			break
		}
	}
	if target < 0 || target >= len(ids) || target == cur {
		return nil
	}
	ids = append(ids[:cur], ids[cur+1:]...)
	ids = append(ids[:target], append([]string{id}, ids[target:]...)...)
	b.order[p.Category] = ids
	return nil
}

// CastEmotion records the session's reaction to a pillar with replace
// semantics: a previous reaction is withdrawn from the tally before the
// new one is counted, so one session holds at most one live reaction
// per pillar.
func (b *BoardService) CastEmotion(category Category, reaction Reaction) error {
	if !ValidCategory(category) {
		return NewInvalidError("unknown category")
	}
	if !ValidReaction(reaction) {
		return NewInvalidError("unknown reaction")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tally := b.tallies[category]
	if prev := b.reactions[category]; prev != ReactionNone {
		tally.add(prev, -1)
	}
	tally.add(reaction, 1)
	b.reactions[category] = reaction
	return nil
}

// ResetRound starts a new voting round: every pain keeps its text but
// loses its votes, all tallies go to zero, and the session's reactions
// are cleared. Admin only.
func (b *BoardService) ResetRound(admin bool) error {
	if !admin {
		return NewForbiddenError("admin required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pains {
		p.Votes = 0
		p.HasVoted = false
	}
	for _, c := range Categories() {
		*b.tallies[c] = EmotionCounts{}
		b.reactions[c] = ReactionNone
	}
	return nil
}

// Grouped returns the pains of every pillar in manual order, newest
// first unless reordered.
func (b *BoardService) Grouped() map[Category][]Pain {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[Category][]Pain, len(b.order))
	for _, c := range Categories() {
		out[c] = b.listLocked(c)
	}
	return out
}

// SortedByVotes returns one pillar's pains sorted by vote count,
// highest first. The sort is stable, so ties keep their manual order.
func (b *BoardService) SortedByVotes(category Category) []Pain {
	b.mu.RLock()
	pains := b.listLocked(category)
	b.mu.RUnlock()
	sort.SliceStable(pains, func(i, j int) bool { return pains[i].Votes > pains[j].Votes })
	return pains
}

func (b *BoardService) listLocked(category Category) []Pain {
	ids := b.order[category]
	out := make([]Pain, 0, len(ids))
	for _, id := range ids {
		out = append(out, *b.pains[id])
	}
	return out
}

// Reactions returns the session's current reaction per pillar.
func (b *BoardService) Reactions() map[Category]Reaction {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[Category]Reaction, len(b.reactions))
	for c, r := range b.reactions {
		out[c] = r
	}
	return out
}

// Tallies returns the emotion counts per pillar.
func (b *BoardService) Tallies() map[Category]EmotionCounts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[Category]EmotionCounts, len(b.tallies))
	for c, t := range b.tallies {
		out[c] = *t
	}
	return out
}

// Stats returns the aggregate counters for the whole board.
func (b *BoardService) Stats() BoardStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var st BoardStats
	st.TotalPains = len(b.pains)
	for _, p := range b.pains {
		st.TotalVotes += p.Votes
		if p.Votes > st.TopPainVotes {
			st.TopPainVotes = p.Votes
		}
	}
	for _, t := range b.tallies {
		st.TotalEmotionVotes += t.Total()
	}
	return st
}
