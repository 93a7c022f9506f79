package realtime

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/streamroom/backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// VerifyFunc checks a credential and returns the identity behind it. It is
// the external auth collaborator; it may call out over the network, so it
// runs before any session lock is taken.
type VerifyFunc func(token string) (Identity, error)

// ServeWs handles the WebSocket upgrade: admission control first, then
// authentication, then the client pumps. Rejection at either stage is cheap —
// no hub or registry state exists yet.
func ServeWs(router *Router, guard *IPGuard, verify VerifyFunc, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		ok, retryAfter := guard.AllowConnect(ip)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			response.TooManyRequests(c, "connection rate limit exceeded")
			return
		}

		token := c.Query("token")
		if token == "" {
			guard.OnDisconnect(ip)
			response.Unauthorized(c, "token required")
			return
		}
		identity, err := verify(token)
		if err != nil {
			guard.OnDisconnect(ip)
			response.Unauthorized(c, "invalid token")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			guard.OnDisconnect(ip)
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := newClient(conn, identity, ip, guard.MessageLimiter(), router, logger)
		logger.Info("connection established",
			zap.String("conn_id", client.ID()),
			zap.String("username", identity.Username),
			zap.String("remote_ip", ip),
		)

		go client.writePump()
		client.readPump(func() { guard.OnDisconnect(ip) })
	}
}
