package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hrportal_backend/internal/app"
	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/config"
	"hrportal_backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestServer - настоящий роутер поверх хранилища в памяти
type TestServer struct {
	Server *httptest.Server
	App    *app.App
	Config *config.Config
}

// NewTestServer поднимает приложение с driver=memory; все ресурсы закрываются через t.Cleanup
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Env = "test"
	cfg.Database.Driver = "memory"
	cfg.Database.DSN = ""
	cfg.Redis.Addr = ""
	cfg.RabbitMQ.URL = ""
	cfg.Email.Enabled = false
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = t.TempDir()
	cfg.Storage.BaseURL = "/uploads"

	ctx, cancel := context.WithCancel(context.Background())
	application, err := app.New(ctx, cfg)
	if err != nil {
		cancel()
		t.Fatalf("Не удалось собрать приложение: %v", err)
	}

	server := httptest.NewServer(application.Router)
	t.Cleanup(func() {
		server.Close()
		cancel()
		application.Close()
	})

	return &TestServer{Server: server, App: application, Config: cfg}
}

// CreateUser сохраняет пользователя и выпускает для него токен
func (ts *TestServer) CreateUser(t *testing.T, role models.UserRole, name string) (models.User, string) {
	t.Helper()

	user := models.User{
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "." + uuid.NewString()[:8] + "@example.com",
		Name:     name,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, ts.App.Repos.Users.Upsert(context.Background(), &user))

	return user, ts.Token(t, auth.Identity{UserID: user.ID, Role: role, Name: name})
}

func (ts *TestServer) Token(t *testing.T, identity auth.Identity) string {
	t.Helper()
	token, err := ts.App.Tokens.Generate(identity)
	require.NoError(t, err)
	return token
}

// SendRequest отправляет JSON-запрос и возвращает ответ и тело строкой
func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err, "Ошибка кодирования JSON для запроса")
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return ts.Do(t, req)
}

func (ts *TestServer) Do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()

	res, err := ts.Server.Client().Do(req)
	require.NoError(t, err, "Ошибка отправки HTTP-запроса")
	defer res.Body.Close()

	resBodyBytes, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(resBodyBytes)
}

// Decode разбирает тело ответа в out
func Decode(t *testing.T, body string, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), out), "тело ответа: %s", body)
}

// Eventually - короткий таймаут для асинхронной доставки в тестах
const Eventually = 2 * time.Second
