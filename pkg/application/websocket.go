package application

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type UpgraderOptions struct {
	// AllowedOrigins lists browser origins (scheme://host[:port]) that may
	// open a socket. The host's own origin is always accepted.
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// NewUpgrader returns a websocket upgrader that rejects cross-origin
// handshakes from origins that are not allowed.
func NewUpgrader(opts *UpgraderOptions) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[strings.TrimSuffix(strings.ToLower(o), "/")] = struct{}{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			if strings.EqualFold(u.Host, r.Host) {
				return true
			}
			if _, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]; ok {
				return true
			}
			logger.WithField("origin", origin).Warn("websocket origin rejected")
			return false
		},
	}
}
