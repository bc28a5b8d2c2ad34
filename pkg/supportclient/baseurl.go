package supportclient

import (
	"net/url"
	"strings"
)

// EnvAPIURL - переменная окружения с базовым адресом API
const EnvAPIURL = "HRPORTAL_API_URL"

// ResolveBaseURL: HRPORTAL_API_URL, иначе тот же origin, с которого открыт портал
func ResolveBaseURL(getenv func(string) string, origin string) string {
	if getenv != nil {
		if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	return strings.TrimRight(origin, "/")
}

// SocketURL переводит http(s)://host в ws(s)://host/ws
func SocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
