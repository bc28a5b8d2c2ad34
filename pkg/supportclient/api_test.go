package supportclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_Requests(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/notifications":
			_ = json.NewEncoder(w).Encode(NotificationList{
				Notifications: []Notification{{ID: "n-1"}},
				UnreadCount:   3,
				Total:         1,
			})
		case r.URL.Path == "/api/notifications/count":
			_, _ = w.Write([]byte(`{"unread_count":3}`))
		case r.URL.Path == "/api/notifications/n-1/read":
			_, _ = w.Write([]byte(`{"id":"n-1","read":true,"read_at":"2026-01-02T03:04:05Z"}`))
		case r.URL.Path == "/api/notifications/read-all":
			_, _ = w.Write([]byte(`{"message":"ok","updated":2}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/notifications/read":
			_, _ = w.Write([]byte(`{"message":"ok","deleted":4}`))
		case r.Method == http.MethodDelete:
			_, _ = w.Write([]byte(`{"message":"deleted"}`))
		case r.URL.Path == "/api/notifications/test":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"n-9","title":"Test notification"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	api := NewAPI(srv.URL+"/", "jwt").WithHTTPClient(srv.Client())

	list, err := api.ListNotifications(ctx, ListOptions{Page: 2, PageSize: 10, UnreadOnly: true, Category: "support"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.UnreadCount)
	assert.Equal(t, "GET /api/notifications?category=support&page=2&page_size=10&unread_only=true", seen[0])

	count, err := api.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	n, err := api.MarkAsRead(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, n.Read)
	require.NotNil(t, n.ReadAt)

	updated, err := api.MarkAllAsRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	deleted, err := api.DeleteReadNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	require.NoError(t, api.DeleteNotification(ctx, "n-1"))

	created, err := api.SendTest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n-9", created.ID)
}

func TestAPI_Errors(t *testing.T) {
	status := http.StatusForbidden
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusForbidden {
			_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","domain":"notification","message":"Notification belongs to another user"}}`))
		}
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "jwt").WithHTTPClient(srv.Client())

	_, err := api.MarkAsRead(context.Background(), "n-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)
	assert.Equal(t, "notification", apiErr.Domain)

	// 4xx не размыкает цепь
	for i := 0; i < 5; i++ {
		_, err = api.UnreadCount(context.Background())
		require.ErrorAs(t, err, &apiErr)
	}

	status = http.StatusBadGateway
	for i := 0; i < 3; i++ {
		_, err = api.UnreadCount(context.Background())
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Bad Gateway", apiErr.Message)
	}
	_, err = api.UnreadCount(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestResolveBaseURL(t *testing.T) {
	env := map[string]string{EnvAPIURL: " https://api.hr.example.com/ "}
	assert.Equal(t, "https://api.hr.example.com", ResolveBaseURL(func(k string) string { return env[k] }, "https://hr.example.com"))
	assert.Equal(t, "https://hr.example.com", ResolveBaseURL(func(string) string { return "" }, "https://hr.example.com/"))
	assert.Equal(t, "http://localhost:3000", ResolveBaseURL(nil, "http://localhost:3000"))
}

func TestSocketURL(t *testing.T) {
	cases := map[string]string{
		"https://hr.example.com":      "wss://hr.example.com/ws",
		"http://localhost:8080/":      "ws://localhost:8080/ws",
		"https://hr.example.com/base": "wss://hr.example.com/base/ws",
	}
	for in, want := range cases {
		got, err := SocketURL(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
