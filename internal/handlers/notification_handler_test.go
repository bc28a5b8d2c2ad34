package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"hrportal_backend/internal/models"
	"hrportal_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationBody struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id"`
	Title    string   `json:"title"`
	Priority string   `json:"priority"`
	Category string   `json:"category"`
	Read     bool     `json:"read"`
	ReadAt   *string  `json:"read_at"`
	Channels []string `json:"channels"`
}

type listBody struct {
	Notifications []notificationBody `json:"notifications"`
	UnreadCount   int64              `json:"unread_count"`
	Total         int64              `json:"total"`
	TotalPages    int                `json:"total_pages"`
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func createNotification(t *testing.T, ts *testutil.TestServer, staffToken, userID, title string) notificationBody {
	t.Helper()
	res, body := ts.SendRequest(t, http.MethodPost, "/api/notifications", staffToken, map[string]interface{}{
		"user_id": userID,
		"type":    "reminder",
		"title":   title,
		"message": "Interview tomorrow at 10:00",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	var n notificationBody
	testutil.Decode(t, body, &n)
	return n
}

// TestNotification_UserFlow - основной путь пользователя через REST
func TestNotification_UserFlow(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, staffToken := ts.CreateUser(t, models.UserRoleHRManager, "Hana Manager")
	cand, candToken := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")

	res, body := ts.SendRequest(t, http.MethodGet, "/api/notifications/count", candToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	var count struct {
		UnreadCount int64 `json:"unread_count"`
	}
	testutil.Decode(t, body, &count)
	assert.Equal(t, int64(0), count.UnreadCount, "вначале непрочитанных нет")

	first := createNotification(t, ts, staffToken, cand.ID, "Interview scheduled")
	createNotification(t, ts, staffToken, cand.ID, "Test assigned")
	assert.Equal(t, "medium", first.Priority)
	assert.Equal(t, "general", first.Category)
	assert.False(t, first.Read)

	res, body = ts.SendRequest(t, http.MethodGet, "/api/notifications", candToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	var list listBody
	testutil.Decode(t, body, &list)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, int64(2), list.UnreadCount)
	require.Len(t, list.Notifications, 2)

	res, body = ts.SendRequest(t, http.MethodPut, "/api/notifications/"+first.ID+"/read", candToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode, body)
	var read notificationBody
	testutil.Decode(t, body, &read)
	assert.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	res, body = ts.SendRequest(t, http.MethodGet, "/api/notifications?unread_only=true", candToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	testutil.Decode(t, body, &list)
	assert.Len(t, list.Notifications, 1)
	assert.Equal(t, int64(1), list.UnreadCount)

	res, body = ts.SendRequest(t, http.MethodPut, "/api/notifications/read-all", candToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"updated":1`)

	res, body = ts.SendRequest(t, http.MethodDelete, "/api/notifications/read", candToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"deleted":2`)

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/notifications/"+first.ID, candToken, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestNotification_OwnershipIsEnforced(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, staffToken := ts.CreateUser(t, models.UserRoleAdmin, "Sam Admin")
	ann, _ := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")
	_, bobToken := ts.CreateUser(t, models.UserRoleCandidate, "Bob Stone")

	n := createNotification(t, ts, staffToken, ann.ID, "Private")

	res, body := ts.SendRequest(t, http.MethodGet, "/api/notifications/"+n.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode, body)

	res, _ = ts.SendRequest(t, http.MethodPut, "/api/notifications/"+n.ID+"/read", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = ts.SendRequest(t, http.MethodDelete, "/api/notifications/"+n.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestNotification_CreateRequiresPermission(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand, candToken := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")
	_, recruiterToken := ts.CreateUser(t, models.UserRoleRecruiter, "Rita Recruiter")

	payload := map[string]interface{}{
		"user_id": cand.ID, "type": "info", "title": "Hi", "message": "Hello",
	}
	res, _ := ts.SendRequest(t, http.MethodPost, "/api/notifications", candToken, payload)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// bulk только для admin и hr_manager
	res, _ = ts.SendRequest(t, http.MethodPost, "/api/notifications/bulk", recruiterToken, map[string]interface{}{
		"user_ids": []string{cand.ID}, "type": "info", "title": "Hi", "message": "Hello",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestNotification_ValidationErrors(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand, _ := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")
	_, staffToken := ts.CreateUser(t, models.UserRoleAdmin, "Sam Admin")

	res, body := ts.SendRequest(t, http.MethodPost, "/api/notifications", staffToken, map[string]interface{}{
		"user_id":  cand.ID,
		"type":     "party",
		"title":    "Hi",
		"message":  "Hello",
		"priority": "critical",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	var errResp errorBody
	testutil.Decode(t, body, &errResp)
	assert.Equal(t, "VALIDATION_FAILED", errResp.Error.Code)
	assert.Contains(t, errResp.Error.Details, "type")
	assert.Contains(t, errResp.Error.Details, "priority")

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	res, _ = ts.SendRequest(t, http.MethodPost, "/api/notifications", staffToken, map[string]interface{}{
		"user_id": cand.ID, "type": "info", "title": "Hi", "message": "Hello", "expires_at": past,
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestNotification_BulkByRole(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, adminToken := ts.CreateUser(t, models.UserRoleAdmin, "Sam Admin")
	ts.CreateUser(t, models.UserRoleInterviewer, "Ivan One")
	ts.CreateUser(t, models.UserRoleInterviewer, "Ivan Two")

	res, body := ts.SendRequest(t, http.MethodPost, "/api/notifications/bulk", adminToken, map[string]interface{}{
		"role":    "interviewer",
		"type":    "test_slot",
		"title":   "New slots",
		"message": "Pick your interview slots",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	var result struct {
		Total     int `json:"total"`
		Succeeded int `json:"succeeded"`
	}
	testutil.Decode(t, body, &result)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Succeeded)

	res, _ = ts.SendRequest(t, http.MethodPost, "/api/notifications/bulk", adminToken, map[string]interface{}{
		"role": "recruiter", "type": "info", "title": "Hi", "message": "Nobody",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestNotification_SendTestReachesSocket(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand, token := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")
	sock := ts.RegisteredSocket(t, token, cand.ID, "candidate", "Ann Lee")

	res, body := ts.SendRequest(t, http.MethodPost, "/api/notifications/test", token, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	var created notificationBody
	testutil.Decode(t, body, &created)
	assert.Contains(t, created.Channels, "realtime")

	var pushed struct {
		ID      string `json:"id"`
		TimeAgo string `json:"timeAgo"`
	}
	sock.ExpectData(t, "notification:new", &pushed)
	assert.Equal(t, created.ID, pushed.ID)
	assert.Equal(t, "just now", pushed.TimeAgo)
}
