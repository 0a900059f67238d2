package platformtracker

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/ctdf"
)

// State is what is remembered about the train occupying one display slot
type State struct {
	CurrentServiceID string
	PreviousPlatform string
	Changed          bool
}

func (s *State) reset() {
	*s = State{}
}

// observe applies one poll's occupant of the slot to the state.
// PreviousPlatform is set when a service is first seen and is not touched again while the same
// service stays in the slot, so after a change it still holds the platform from before the first change.
func (s *State) observe(serviceID string, platform string) {
	switch {
	case serviceID == "":
		s.CurrentServiceID = ""
		s.PreviousPlatform = platform
		s.Changed = false
	case serviceID == s.CurrentServiceID:
		s.Changed = platform != s.PreviousPlatform
	default:
		s.CurrentServiceID = serviceID
		s.PreviousPlatform = platform
		s.Changed = false
	}
}

// SlotView is the platform state of a slot as shown to consumers
type SlotView struct {
	Slot    int                 `json:"slot"`
	Service *ctdf.ServiceRecord `json:"service"`

	Platform         string `json:"platform"`
	PlatformChanged  bool   `json:"platform_changed"`
	PreviousPlatform string `json:"previous_platform,omitempty"`
}

// Tracker keeps a State per slot, slot 1 being the next train
type Tracker struct {
	mutex sync.RWMutex

	slots    int
	states   map[int]*State
	services map[int]ctdf.ServiceRecord
}

func NewTracker(slots int) *Tracker {
	return &Tracker{
		slots:    slots,
		states:   map[int]*State{},
		services: map[int]ctdf.ServiceRecord{},
	}
}

func (t *Tracker) Slots() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.slots
}

// Update moves every slot on to the services of a new snapshot, in snapshot order
func (t *Tracker) Update(services []ctdf.ServiceRecord) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for slot := 1; slot <= t.slots; slot++ {
		state, exists := t.states[slot]
		if !exists {
			state = &State{}
			t.states[slot] = state
		}

		if slot > len(services) {
			state.reset()
			delete(t.services, slot)
			continue
		}

		service := services[slot-1]
		wasChanged := state.Changed

		state.observe(service.ServiceID, service.Platform)
		t.services[slot] = service

		if state.Changed && !wasChanged {
			log.Info().
				Int("slot", slot).
				Str("serviceid", service.ServiceID).
				Str("from", state.PreviousPlatform).
				Str("to", service.Platform).
				Msg("Platform changed")
		}
	}
}

// Slot returns the view of slot n (1 indexed), an empty view for unknown or empty slots
func (t *Tracker) Slot(n int) SlotView {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	view := SlotView{Slot: n}

	service, occupied := t.services[n]
	if !occupied {
		return view
	}

	view.Service = &service
	view.Platform = service.Platform

	if state, exists := t.states[n]; exists && state.Changed {
		view.PlatformChanged = true
		view.PreviousPlatform = state.PreviousPlatform
	}

	return view
}

func (t *Tracker) State(n int) State {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if state, exists := t.states[n]; exists {
		return *state
	}

	return State{}
}

// Resize changes the number of slots, dropping the state of any slot above n
func (t *Tracker) Resize(n int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for slot := range t.states {
		if slot > n {
			delete(t.states, slot)
			delete(t.services, slot)
		}
	}

	t.slots = n
}
