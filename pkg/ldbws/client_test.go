package ldbws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTimer fires straight away and remembers how long it was asked to wait
type recordingTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (r *recordingTimer) Start(duration time.Duration) {
	r.waits = append(r.waits, duration)
	r.c = make(chan time.Time, 1)
	r.c <- time.Now()
}

func (r *recordingTimer) Stop() {}

func (r *recordingTimer) C() <-chan time.Time {
	return r.c
}

func (r *recordingTimer) roundedWaits() []time.Duration {
	rounded := []time.Duration{}
	for _, wait := range r.waits {
		rounded = append(rounded, wait.Round(time.Second))
	}
	return rounded
}

type testServer struct {
	*httptest.Server
	attempts atomic.Int32
	lastReq  *http.Request
}

// newTestServer replies with the given statuses in order, repeating the last one
func newTestServer(t *testing.T, body string, statuses ...int) *testServer {
	server := &testServer{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := int(server.attempts.Add(1))
		server.lastReq = r

		status := statuses[len(statuses)-1]
		if attempt <= len(statuses) {
			status = statuses[attempt-1]
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(server.Close)

	return server
}

func newTestClient(server *testServer) (*Client, *recordingTimer) {
	timer := &recordingTimer{}

	client := NewClient("test-key")
	client.BaseURL = server.URL
	client.Timer = timer

	return client, timer
}

func TestFetchDepartureBoardRequest(t *testing.T) {
	server := newTestServer(t, wrappedBoard, http.StatusOK)
	client, _ := newTestClient(server)

	raw, err := client.FetchDepartureBoard(context.Background(), "pad", "rdg", 60, 10)
	require.NoError(t, err)
	assert.JSONEq(t, wrappedBoard, string(raw))

	require.NotNil(t, server.lastReq)
	assert.Equal(t, "/GetDepBoardWithDetails/PAD", server.lastReq.URL.Path)
	assert.Equal(t, "RDG", server.lastReq.URL.Query().Get("filterCrs"))
	assert.Equal(t, "60", server.lastReq.URL.Query().Get("timeWindow"))
	assert.Equal(t, "10", server.lastReq.URL.Query().Get("numRows"))
	assert.Equal(t, "test-key", server.lastReq.Header.Get("x-apikey"))
	assert.Equal(t, DefaultUserAgent, server.lastReq.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", server.lastReq.Header.Get("Accept"))
}

func TestGetDepartureBoard(t *testing.T) {
	server := newTestServer(t, wrappedBoard, http.StatusOK)
	client, _ := newTestClient(server)

	board, err := client.GetDepartureBoard(context.Background(), "PAD", "RDG", 60, 10)
	require.NoError(t, err)

	assert.Equal(t, "London Paddington", board.LocationName)
	assert.Len(t, board.Services, 3)
}

func TestGetDepartureBoardInvalidBody(t *testing.T) {
	server := newTestServer(t, `not json`, http.StatusOK)
	client, _ := newTestClient(server)

	_, err := client.GetDepartureBoard(context.Background(), "PAD", "RDG", 60, 10)
	require.Error(t, err)
	assert.Equal(t, "ApiError", Category(err))
}

func TestRequestStatusHandling(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		attempts int32
		waits    []time.Duration
		target   error
		category string
	}{
		{"unauthorised", []int{http.StatusUnauthorized}, 1, []time.Duration{}, ErrAuthentication, "AuthenticationError"},
		{"forbidden", []int{http.StatusForbidden}, 1, []time.Duration{}, ErrAuthentication, "AuthenticationError"},
		{"not found", []int{http.StatusNotFound}, 1, []time.Duration{}, ErrInvalidStation, "InvalidStationError"},
		{"bad request", []int{http.StatusBadRequest}, 1, []time.Duration{}, ErrAPI, "ApiError"},
		{
			"rate limited every time",
			[]int{http.StatusTooManyRequests},
			4,
			[]time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
			ErrRateLimit,
			"RateLimitError",
		},
		{
			"server error every time",
			[]int{http.StatusServiceUnavailable},
			4,
			[]time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
			ErrAPI,
			"ApiError",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := newTestServer(t, "{}", test.statuses...)
			client, timer := newTestClient(server)

			_, err := client.FetchDepartureBoard(context.Background(), "PAD", "RDG", 60, 10)
			require.Error(t, err)

			assert.True(t, errors.Is(err, test.target))
			assert.True(t, errors.Is(err, ErrAPI))
			assert.Equal(t, test.category, Category(err))
			assert.Equal(t, test.attempts, server.attempts.Load())
			assert.Equal(t, test.waits, timer.roundedWaits())

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, test.statuses[0], apiErr.StatusCode)
		})
	}
}

func TestRequestRecoversAfterRetry(t *testing.T) {
	server := newTestServer(t, `{"locationName": "London Paddington"}`, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusOK)
	client, timer := newTestClient(server)

	ok, err := client.ValidateAPIKey(context.Background())
	require.NoError(t, err)

	assert.True(t, ok)
	assert.Equal(t, int32(3), server.attempts.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.roundedWaits())
}

func TestRequestTimeoutIsRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		w.Write([]byte(`{"locationName": "Reading"}`))
	}))
	t.Cleanup(server.Close)

	timer := &recordingTimer{}
	client := NewClient("test-key")
	client.BaseURL = server.URL
	client.Timer = timer
	client.RequestTimeout = 50 * time.Millisecond

	name, err := client.ValidateStation(context.Background(), "rdg")
	require.NoError(t, err)

	assert.Equal(t, "Reading", name)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Len(t, timer.waits, 1)
}

func TestNetworkErrorIsApiError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	timer := &recordingTimer{}
	client := NewClient("test-key")
	client.BaseURL = server.URL
	client.Timer = timer

	_, err := client.FetchDepartureBoard(context.Background(), "PAD", "RDG", 60, 10)
	require.Error(t, err)

	assert.Equal(t, "ApiError", Category(err))
	assert.Len(t, timer.waits, 3)
}

func TestValidateStation(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		server := newTestServer(t, `{"GetStationBoardResult": {"locationName": "London Paddington"}}`, http.StatusOK)
		client, _ := newTestClient(server)

		name, err := client.ValidateStation(context.Background(), "pad")
		require.NoError(t, err)

		assert.Equal(t, "London Paddington", name)
		assert.Equal(t, "/GetDepartureBoard/PAD", server.lastReq.URL.Path)
		assert.Equal(t, "1", server.lastReq.URL.Query().Get("numRows"))
	})

	t.Run("wrong length makes no request", func(t *testing.T) {
		server := newTestServer(t, "{}", http.StatusOK)
		client, _ := newTestClient(server)

		for _, code := range []string{"", "PA", "PADD"} {
			_, err := client.ValidateStation(context.Background(), code)
			assert.Equal(t, "InvalidStationError", Category(err), code)
		}
		assert.Equal(t, int32(0), server.attempts.Load())
	})

	t.Run("missing location name", func(t *testing.T) {
		server := newTestServer(t, `{"GetStationBoardResult": {}}`, http.StatusOK)
		client, _ := newTestClient(server)

		_, err := client.ValidateStation(context.Background(), "XYZ")
		assert.Equal(t, "InvalidStationError", Category(err))
	})

	t.Run("bad request becomes invalid station", func(t *testing.T) {
		server := newTestServer(t, "{}", http.StatusBadRequest)
		client, _ := newTestClient(server)

		_, err := client.ValidateStation(context.Background(), "XYZ")
		assert.ErrorIs(t, err, ErrInvalidStation)
	})

	t.Run("authentication propagates", func(t *testing.T) {
		server := newTestServer(t, "{}", http.StatusUnauthorized)
		client, _ := newTestClient(server)

		_, err := client.ValidateStation(context.Background(), "PAD")
		assert.Equal(t, "AuthenticationError", Category(err))
	})

	t.Run("rate limit propagates", func(t *testing.T) {
		server := newTestServer(t, "{}", http.StatusTooManyRequests)
		client, _ := newTestClient(server)

		_, err := client.ValidateStation(context.Background(), "PAD")
		assert.Equal(t, "RateLimitError", Category(err))
	})
}

func TestValidateAPIKey(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		server := newTestServer(t, "{}", http.StatusForbidden)
		client, _ := newTestClient(server)

		ok, err := client.ValidateAPIKey(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("other failures become authentication errors", func(t *testing.T) {
		server := newTestServer(t, "{}", http.StatusBadGateway)
		client, _ := newTestClient(server)

		ok, err := client.ValidateAPIKey(context.Background())
		assert.False(t, ok)
		assert.Equal(t, "AuthenticationError", Category(err))
		assert.Equal(t, "/GetDepartureBoard/PAD", server.lastReq.URL.Path)
	})
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "", Category(nil))
	assert.Equal(t, "ApiError", Category(errors.New("something else")))
	assert.Equal(t, "RateLimitError", Category(newError(ErrRateLimit, MessageRateLimit, 429, nil)))
}
