package supportclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// APIError - тело {"error": {...}} ответа сервера
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Domain  string `json:"domain"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// API - REST-клиент для /api/notifications
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "hrportal-api",
			MaxRequests: 2,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			// 4xx - ответ сервера, а не отказ
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				apiErr, ok := err.(*APIError)
				return ok && apiErr.Status < http.StatusInternalServerError
			},
		}),
	}
}

// WithHTTPClient подменяет транспорт, в тестах - httptest
func (a *API) WithHTTPClient(c *http.Client) *API {
	a.httpClient = c
	return a
}

type ListOptions struct {
	Page       int
	PageSize   int
	UnreadOnly bool
	Type       string
	Category   string
}

func (a *API) ListNotifications(ctx context.Context, opts ListOptions) (*NotificationList, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	if opts.UnreadOnly {
		q.Set("unread_only", "true")
	}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}

	path := "/api/notifications"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out NotificationList
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		UnreadCount int64 `json:"unread_count"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/notifications/count", nil, &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

func (a *API) MarkAsRead(ctx context.Context, id string) (*Notification, error) {
	var out Notification
	if err := a.do(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) MarkAllAsRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := a.do(ctx, http.MethodPut, "/api/notifications/read-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func (a *API) DeleteNotification(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil, nil)
}

func (a *API) DeleteReadNotifications(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := a.do(ctx, http.MethodDelete, "/api/notifications/read", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (a *API) SendTest(ctx context.Context) (*Notification, error) {
	var out Notification
	if err := a.do(ctx, http.MethodPost, "/api/notifications/test", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if a.token != "" {
			req.Header.Set("Authorization", "Bearer "+a.token)
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return nil, decodeAPIError(resp)
		}
		if out == nil {
			return nil, nil
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error == nil {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	envelope.Error.Status = resp.StatusCode
	return envelope.Error
}
