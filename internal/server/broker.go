package server

import (
	"encoding/json"
	"sync"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

// RosterEvent is published when a registration changes state.
type RosterEvent struct {
	Type          string           `json:"type"`
	RaceID        int64            `json:"raceId"`
	ParticipantID int64            `json:"participantId"`
	BibNumber     string           `json:"bibNumber"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	Country       string           `json:"country"`
	Status        trailrace.Status `json:"status"`
}

func newRosterEvent(typ string, p trailrace.Participant) RosterEvent {
	return RosterEvent{
		Type:          typ,
		RaceID:        p.RaceID,
		ParticipantID: p.ID,
		BibNumber:     p.BibNumber,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Country:       p.Country,
		Status:        p.Status,
	}
}

// allRaces is the subscription key for events of every race.
const allRaces int64 = 0

// Broker is an in-process pub/sub for roster events, keyed by race ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[int64]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int64]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given race, or for every race when raceID is 0.
func (b *Broker) Subscribe(raceID int64) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[raceID] == nil {
		b.subs[raceID] = make(map[chan []byte]struct{})
	}
	b.subs[raceID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(raceID int64, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[raceID], ch)
	if len(b.subs[raceID]) == 0 {
		delete(b.subs, raceID)
	}
	b.mu.Unlock()
}

// Publish sends an event to the race's subscribers and to those watching
// every race.
func (b *Broker) Publish(ev RosterEvent) {
	data, _ := json.Marshal(ev)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, key := range []int64{ev.RaceID, allRaces} {
		for ch := range b.subs[key] {
			select {
			case ch <- data:
			default:
				// Drop if subscriber is slow.
			}
		}
	}
}
