package ldbws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railcommute/pkg/ctdf"
)

const wrappedBoard = `{
  "GetStationBoardResult": {
    "generatedAt": "2024-01-15T08:30:00",
    "locationName": "London Paddington",
    "crs": "PAD",
    "filterLocationName": "Reading",
    "nrccMessages": [{"Value": "Disruption between Reading and Didcot"}],
    "trainServices": {
      "service": [
        {
          "std": "08:35",
          "etd": "On time",
          "platform": "3",
          "operator": "Great Western Railway",
          "serviceID": "SVC1",
          "destination": [{"locationName": "Reading", "crs": "RDG"}],
          "subsequentCallingPoints": [
            {"callingPoint": [
              {"locationName": "Slough", "crs": "SLO", "st": "08:50", "et": "On time"},
              {"locationName": "Reading", "crs": "RDG", "st": "09:05", "et": "09:07"}
            ]}
          ]
        },
        {
          "std": "08:50",
          "etd": "09:05",
          "platform": "5",
          "operatorName": "Elizabeth Line",
          "serviceIdUrlSafe": "SVC2",
          "delayReason": "Signalling problems",
          "destination": {"locationName": "Reading"},
          "subsequentCallingPoints": [
            {"callingPoint": {"locationName": "Reading", "st": "09:30"}}
          ]
        },
        {
          "std": "09:05",
          "etd": "Cancelled",
          "operator": "Great Western Railway",
          "serviceID": "SVC3",
          "cancelReason": "Train crew unavailable",
          "delayReason": "Earlier delays",
          "destination": [{"locationName": "Reading"}]
        }
      ]
    }
  }
}`

func TestParseBoardWrapped(t *testing.T) {
	assert := assert.New(t)

	board, err := ParseBoard([]byte(wrappedBoard))
	require.NoError(t, err)

	assert.Equal("London Paddington", board.LocationName)
	assert.Equal("Reading", board.FilterLocationName)
	assert.Equal("2024-01-15T08:30:00", board.GeneratedAt)
	assert.Equal([]string{"Disruption between Reading and Didcot"}, board.NrccMessages)
	require.Len(t, board.Services, 3)

	onTime := board.Services[0]
	assert.Equal("SVC1", onTime.ServiceID)
	assert.Equal("Great Western Railway", onTime.Operator)
	assert.Equal("08:35", onTime.ScheduledDeparture)
	assert.Equal("08:35", onTime.ExpectedDeparture)
	assert.Equal("3", onTime.Platform)
	assert.Equal(ctdf.ServiceStatusOnTime, onTime.Status)
	assert.False(onTime.IsCancelled)
	assert.Equal(0, onTime.DelayMinutes)
	assert.Equal("Reading", onTime.Destination)
	assert.Equal([]string{"Slough", "Reading"}, onTime.CallingPoints)
	assert.Equal("09:05", onTime.ScheduledArrival)
	assert.Equal("09:07", onTime.EstimatedArrival)

	delayed := board.Services[1]
	assert.Equal("SVC2", delayed.ServiceID)
	assert.Equal("Elizabeth Line", delayed.Operator)
	assert.Equal("09:05", delayed.ExpectedDeparture)
	assert.Equal(ctdf.ServiceStatusDelayed, delayed.Status)
	assert.Equal(15, delayed.DelayMinutes)
	assert.Equal("Signalling problems", delayed.DelayReason)
	assert.Empty(delayed.CancellationReason)
	assert.Equal("Reading", delayed.Destination)
	assert.Equal([]string{"Reading"}, delayed.CallingPoints)
	assert.Equal("09:30", delayed.ScheduledArrival)
	assert.Equal("09:30", delayed.EstimatedArrival)

	cancelled := board.Services[2]
	assert.Equal(ctdf.ServiceStatusCancelled, cancelled.Status)
	assert.True(cancelled.IsCancelled)
	assert.Equal(0, cancelled.DelayMinutes)
	assert.Equal("Train crew unavailable", cancelled.CancellationReason)
	assert.Empty(cancelled.DelayReason)
	assert.Empty(cancelled.Platform)
	assert.Empty(cancelled.CallingPoints)
}

func TestParseBoardShapes(t *testing.T) {
	t.Run("bare service list without wrapper", func(t *testing.T) {
		board, err := ParseBoard([]byte(`{"locationName": "Reading", "trainServices": [{"std": "10:00", "etd": "On time", "serviceID": "A"}]}`))
		require.NoError(t, err)

		assert.Equal(t, "Reading", board.LocationName)
		require.Len(t, board.Services, 1)
		assert.Equal(t, "A", board.Services[0].ServiceID)
	})

	t.Run("single service object", func(t *testing.T) {
		board, err := ParseBoard([]byte(`{"trainServices": {"service": {"std": "10:00", "etd": "10:04", "serviceID": "B"}}}`))
		require.NoError(t, err)

		require.Len(t, board.Services, 1)
		assert.Equal(t, 4, board.Services[0].DelayMinutes)
	})

	t.Run("no services", func(t *testing.T) {
		board, err := ParseBoard([]byte(`{"GetStationBoardResult": {"locationName": "Reading", "trainServices": null}}`))
		require.NoError(t, err)

		assert.Empty(t, board.Services)
		assert.NotNil(t, board.Services)
		assert.Equal(t, []string{}, board.NrccMessages)
	})

	t.Run("string and lower case messages", func(t *testing.T) {
		board, err := ParseBoard([]byte(`{"nrccMessages": ["First", {"value": "Second"}, {"Value": ""}]}`))
		require.NoError(t, err)

		assert.Equal(t, []string{"First", "Second"}, board.NrccMessages)
	})

	t.Run("broken service is dropped", func(t *testing.T) {
		board, err := ParseBoard([]byte(`{"trainServices": [{"std": 1000, "serviceID": "BAD"}, {"std": "10:00", "etd": "On time", "serviceID": "GOOD"}]}`))
		require.NoError(t, err)

		require.Len(t, board.Services, 1)
		assert.Equal(t, "GOOD", board.Services[0].ServiceID)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := ParseBoard([]byte(`[1, 2, 3]`))
		assert.Error(t, err)

		_, err = ParseBoard([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		std      string
		etd      string
		status   ctdf.ServiceStatus
		expected string
		delay    int
	}{
		{"on time", "08:35", "On time", ctdf.ServiceStatusOnTime, "08:35", 0},
		{"on time lower case", "08:35", "on time", ctdf.ServiceStatusOnTime, "08:35", 0},
		{"missing estimate", "08:35", "", ctdf.ServiceStatusOnTime, "08:35", 0},
		{"estimate equals schedule", "08:35", "08:35", ctdf.ServiceStatusDelayed, "08:35", 0},
		{"delayed", "08:50", "09:05", ctdf.ServiceStatusDelayed, "09:05", 15},
		{"midnight rollover", "23:50", "00:05", ctdf.ServiceStatusDelayed, "00:05", 15},
		{"cancelled", "09:05", "Cancelled", ctdf.ServiceStatusCancelled, "09:05", 0},
		{"canceled upper case", "09:05", "CANCELED", ctdf.ServiceStatusCancelled, "09:05", 0},
		{"delayed without time", "09:05", "Delayed", ctdf.ServiceStatusDelayed, "Delayed", 0},
		{"single digit hour", "08:35", "9:05", ctdf.ServiceStatusDelayed, "9:05", 0},
		{"letters", "08:35", "abc:de", ctdf.ServiceStatusDelayed, "abc:de", 0},
		{"seconds", "08:35", "09:05:30", ctdf.ServiceStatusDelayed, "09:05:30", 0},
		{"free text", "08:35", "Delayed: 5", ctdf.ServiceStatusDelayed, "Delayed: 5", 0},
		{"single digit schedule", "8:35", "09:05", ctdf.ServiceStatusDelayed, "09:05", 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			status, expected, delay := DeriveStatus(test.std, test.etd)

			assert.Equal(t, test.status, status)
			assert.Equal(t, test.expected, expected)
			assert.Equal(t, test.delay, delay)
		})
	}
}

func TestDeriveStatusRoundTrip(t *testing.T) {
	board, err := ParseBoard([]byte(wrappedBoard))
	require.NoError(t, err)

	for _, service := range board.Services {
		status, _, delay := DeriveStatus(service.ScheduledDeparture, service.EstimatedDeparture())

		assert.Equal(t, service.Status, status, service.ServiceID)
		assert.Equal(t, service.DelayMinutes, delay, service.ServiceID)
	}
}
