package deskapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskbook/internal/config"
	"deskbook/internal/deskservice"
	"deskbook/internal/models"
)

func newDeskService(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store, err := deskservice.Open(filepath.Join(t.TempDir(), "desks.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.SyncDesks(context.Background(), []config.DeskConfig{
		{ID: 1, Name: "Desk A"},
		{ID: 2, Name: "Desk B"},
	}))

	srv := httptest.NewServer(deskservice.NewHTTPServer(":0", "valid-key", store, &logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AgainstDeskService(t *testing.T) {
	srv := newDeskService(t)
	client := NewClient(srv.URL+"/", "valid-key", time.Second)
	ctx := context.Background()

	desks, err := client.ListDesks(ctx)
	require.NoError(t, err)
	require.Len(t, desks, 2)
	assert.True(t, desks[0].BookingFor("2024-06-11").IsAvailable)

	require.NoError(t, client.BookDesk(ctx, models.NumberID(1), "Bob", "2024-06-11"))
	desks, err = client.ListDesks(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatus{IsAvailable: false, EmployeeName: "Bob"}, desks[0].BookingFor("2024-06-11"))

	require.NoError(t, client.CancelBooking(ctx, models.NumberID(1), "2024-06-11"))
	desks, err = client.ListDesks(ctx)
	require.NoError(t, err)
	assert.True(t, desks[0].BookingFor("2024-06-11").IsAvailable)

	assert.NoError(t, client.HealthCheck(ctx))
}

func TestClient_WireFormat(t *testing.T) {
	type captured struct {
		method, path, apiKey, contentType string
		body                              map[string]any
	}
	var got captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = captured{
			method:      r.Method,
			path:        r.URL.Path,
			apiKey:      r.Header.Get("x-api-key"),
			contentType: r.Header.Get("Content-Type"),
		}
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", time.Second)
	ctx := context.Background()

	require.NoError(t, client.BookDesk(ctx, models.NumberID(1), "Bob", "2024-06-11"))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/desks/book", got.path)
	assert.Equal(t, "k", got.apiKey)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, map[string]any{"id": float64(1), "employee_name": "Bob", "date": "2024-06-11"}, got.body)

	require.NoError(t, client.CancelBooking(ctx, models.StringID("desk a"), "2024-06-10"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/desks/desk a", got.path)
	assert.Equal(t, map[string]any{"date": "2024-06-10"}, got.body)
}

func TestClient_EchoesStringIDs(t *testing.T) {
	var bodies []string
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"id":"007","name":"Bond","bookings":{}},{"id":"1","name":"One","bookings":{}}]`))
		default:
			raw, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(raw))
			paths = append(paths, r.URL.Path)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	ctx := context.Background()

	desks, err := client.ListDesks(ctx)
	require.NoError(t, err)
	require.Len(t, desks, 2)
	assert.False(t, desks[0].ID.IsNumber())
	assert.False(t, desks[1].ID.IsNumber())

	require.NoError(t, client.BookDesk(ctx, desks[0].ID, "Bob", "2024-06-11"))
	require.NoError(t, client.BookDesk(ctx, desks[1].ID, "Bob", "2024-06-11"))
	require.NoError(t, client.CancelBooking(ctx, desks[0].ID, "2024-06-11"))

	require.Len(t, bodies, 3)
	for _, b := range bodies {
		assert.True(t, json.Valid([]byte(b)), b)
	}
	assert.JSONEq(t, `{"id":"007","employee_name":"Bob","date":"2024-06-11"}`, bodies[0])
	assert.JSONEq(t, `{"id":"1","employee_name":"Bob","date":"2024-06-11"}`, bodies[1])
	assert.Equal(t, "/desks/007", paths[2])
}

func TestClient_ErrorKinds(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "conflict", http.StatusConflict)
		}))
		defer srv.Close()

		err := NewClient(srv.URL, "", time.Second).BookDesk(context.Background(), models.NumberID(1), "Bob", "2024-06-11")
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, KindStatus, apiErr.Kind)
		assert.Equal(t, http.StatusConflict, apiErr.Status)
		assert.Equal(t, OpBookDesk, apiErr.Op)
		assert.False(t, errors.Is(err, ErrUnavailable))
		assert.Equal(t, "The booking service rejected the request (HTTP 409).", UserMessage(err))
	})

	t.Run("decode", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"not":"a list"}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "", time.Second).ListDesks(context.Background())
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, KindDecode, apiErr.Kind)
		assert.Equal(t, "The booking service sent an unexpected response.", UserMessage(err))
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		err := NewClient(url, "", time.Second).CancelBooking(context.Background(), models.NumberID(1), "2024-06-10")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, "Could not reach the booking service. Please try again.", UserMessage(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := newDeskService(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewClient(srv.URL, "valid-key", time.Second).ListDesks(ctx)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("non-gateway error", func(t *testing.T) {
		assert.Equal(t, "Something went wrong. Please try again.", UserMessage(errors.New("boom")))
	})
}

func TestClient_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var listCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			listCalls.Add(1)
			_, _ = w.Write([]byte(`[{"id":1,"name":"Desk A","bookings":{}}]`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	client.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		desks, err := client.ListDesks(ctx)
		require.NoError(t, err)
		require.Len(t, desks, 1)
	}
	assert.Equal(t, int32(1), listCalls.Load())
	assert.True(t, mr.Exists(desksCacheKey))

	require.NoError(t, client.BookDesk(ctx, models.NumberID(1), "Bob", "2024-06-11"))
	assert.False(t, mr.Exists(desksCacheKey), "booking invalidates the cached list")

	_, err := client.ListDesks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), listCalls.Load())

	mr.FastForward(2 * time.Minute)
	_, err = client.ListDesks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), listCalls.Load())
}
