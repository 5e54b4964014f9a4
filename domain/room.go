// Package domain contains the core concepts of the relay: rooms, participants,
// chat events and their per-language renderings.
// No runtime, network, or UI logic should be added here.
package domain

type RoomID string

// Room owns the roster of one chat channel. Participants are kept in join
// order so roster listings are deterministic; uniqueness is by participant id.
//
// A Room is owned exclusively by its room controller and is therefore not
// safe for concurrent use.
type Room struct {
	ID           RoomID
	participants []*Participant
	byID         map[string]*Participant
}

func NewRoom(id RoomID) *Room {
	return &Room{
		ID:   id,
		byID: make(map[string]*Participant),
	}
}

func (r *Room) Len() int {
	return len(r.participants)
}

func (r *Room) Get(participantID string) (*Participant, bool) {
	p, ok := r.byID[participantID]
	return p, ok
}

// Add appends a participant to the roster. Returns false when the id is
// already taken by a live participant.
func (r *Room) Add(p *Participant) bool {
	if _, ok := r.byID[p.ID]; ok {
		return false
	}
	r.byID[p.ID] = p
	r.participants = append(r.participants, p)
	return true
}

// Remove deletes a participant from the roster, preserving join order of the
// remaining members.
func (r *Room) Remove(participantID string) bool {
	if _, ok := r.byID[participantID]; !ok {
		return false
	}
	delete(r.byID, participantID)
	for i, p := range r.participants {
		if p.ID == participantID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			break
		}
	}
	return true
}

// Roster returns a snapshot of the current participants in join order.
func (r *Room) Roster() []Participant {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	return out
}

// DistinctLanguages returns the set of declared languages among ACTIVE
// participants, excluding the given participant id. The exclusion is how the
// no-echo policy keeps a solo sender from triggering any translation work.
func (r *Room) DistinctLanguages(excludeID string) []string {
	seen := make(map[string]struct{})
	var langs []string
	for _, p := range r.participants {
		if p.ID == excludeID || p.State != StateActive {
			continue
		}
		if _, ok := seen[p.Language]; ok {
			continue
		}
		seen[p.Language] = struct{}{}
		langs = append(langs, p.Language)
	}
	return langs
}

// ActiveByLanguage returns the ids of ACTIVE participants declaring the given
// language, excluding the given participant id.
func (r *Room) ActiveByLanguage(language, excludeID string) []string {
	var ids []string
	for _, p := range r.participants {
		if p.ID == excludeID || p.State != StateActive {
			continue
		}
		if p.Language == language {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
