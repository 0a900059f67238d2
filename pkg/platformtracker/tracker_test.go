package platformtracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/travigo/railcommute/pkg/ctdf"
)

func service(id string, platform string) ctdf.ServiceRecord {
	return ctdf.ServiceRecord{ServiceID: id, Platform: platform}
}

func TestPreviousPlatformFreezesAtFirstChange(t *testing.T) {
	tracker := NewTracker(1)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "3")})
	view := tracker.Slot(1)
	assert.False(t, view.PlatformChanged)
	assert.Equal(t, "3", view.Platform)
	assert.Empty(t, view.PreviousPlatform)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "5")})
	view = tracker.Slot(1)
	assert.True(t, view.PlatformChanged)
	assert.Equal(t, "5", view.Platform)
	assert.Equal(t, "3", view.PreviousPlatform)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "7")})
	view = tracker.Slot(1)
	assert.True(t, view.PlatformChanged)
	assert.Equal(t, "7", view.Platform)
	assert.Equal(t, "3", view.PreviousPlatform)

	tracker.Update([]ctdf.ServiceRecord{service("S2", "4")})
	view = tracker.Slot(1)
	assert.False(t, view.PlatformChanged)
	assert.Equal(t, "4", view.Platform)
	assert.Empty(t, view.PreviousPlatform)
	assert.Equal(t, State{CurrentServiceID: "S2", PreviousPlatform: "4"}, tracker.State(1))
}

func TestSamePlatformIsNotAChange(t *testing.T) {
	tracker := NewTracker(1)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "3")})
	tracker.Update([]ctdf.ServiceRecord{service("S1", "3")})

	assert.False(t, tracker.Slot(1).PlatformChanged)
}

func TestPlatformAnnouncedCountsAsChange(t *testing.T) {
	tracker := NewTracker(1)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "")})
	tracker.Update([]ctdf.ServiceRecord{service("S1", "2")})

	view := tracker.Slot(1)
	assert.True(t, view.PlatformChanged)
	assert.Empty(t, view.PreviousPlatform)
	assert.Equal(t, "2", view.Platform)
}

func TestMissingServiceID(t *testing.T) {
	tracker := NewTracker(1)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "3")})
	tracker.Update([]ctdf.ServiceRecord{service("", "6")})

	assert.False(t, tracker.Slot(1).PlatformChanged)
	assert.Equal(t, State{PreviousPlatform: "6"}, tracker.State(1))

	// S1 coming back is treated as a new occupant
	tracker.Update([]ctdf.ServiceRecord{service("S1", "6")})
	assert.False(t, tracker.Slot(1).PlatformChanged)
	assert.Equal(t, "S1", tracker.State(1).CurrentServiceID)
}

func TestEmptySlotResets(t *testing.T) {
	tracker := NewTracker(2)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "3"), service("S2", "4")})
	tracker.Update([]ctdf.ServiceRecord{service("S1", "3"), service("S2", "9")})
	assert.True(t, tracker.Slot(2).PlatformChanged)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "3")})

	view := tracker.Slot(2)
	assert.Nil(t, view.Service)
	assert.False(t, view.PlatformChanged)
	assert.Equal(t, State{}, tracker.State(2))

	tracker.Update([]ctdf.ServiceRecord{service("S1", "3"), service("S2", "9")})
	assert.False(t, tracker.Slot(2).PlatformChanged)
}

func TestSlotsMoveIndependently(t *testing.T) {
	tracker := NewTracker(2)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "1"), service("S2", "2")})
	// S1 has left, S2 moves up to the first slot
	tracker.Update([]ctdf.ServiceRecord{service("S2", "2"), service("S3", "3")})

	assert.False(t, tracker.Slot(1).PlatformChanged)
	assert.Equal(t, "S2", tracker.State(1).CurrentServiceID)
	assert.False(t, tracker.Slot(2).PlatformChanged)
	assert.Equal(t, "S3", tracker.State(2).CurrentServiceID)
}

func TestResize(t *testing.T) {
	tracker := NewTracker(3)
	tracker.Update([]ctdf.ServiceRecord{service("S1", "1"), service("S2", "2"), service("S3", "3")})

	tracker.Resize(1)

	assert.Equal(t, 1, tracker.Slots())
	assert.Equal(t, State{}, tracker.State(2))
	assert.Nil(t, tracker.Slot(3).Service)
	assert.Equal(t, "S1", tracker.State(1).CurrentServiceID)

	tracker.Update([]ctdf.ServiceRecord{service("S1", "1"), service("S2", "2")})
	assert.Nil(t, tracker.Slot(2).Service)
}
