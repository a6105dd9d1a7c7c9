package stream

import (
	"net/http"
	"time"

	"schoolpay/internal/domain"
	"schoolpay/internal/pkg/jwt"
	"schoolpay/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades dashboard connections onto the status feed.
type WSHandler struct {
	hub        *Hub
	jwtService *jwt.Service
	loggerf    func(format string, args ...interface{})
}

func NewWSHandler(hub *Hub, jwtService *jwt.Service, loggerf func(format string, args ...interface{})) *WSHandler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &WSHandler{hub: hub, jwtService: jwtService, loggerf: loggerf}
}

// HandleWebSocket serves GET /ws?token=JWT. Browsers cannot set headers on
// websocket handshakes, so the token travels as a query parameter.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "TOKEN_REQUIRED", "Use ?token=YOUR_JWT_TOKEN")
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.loggerf("level=error msg=websocket upgrade failed err=%v", err)
		return
	}

	caller := domain.Caller{
		UserID:   claims.UserID,
		Role:     domain.Role(claims.Role),
		SchoolID: claims.SchoolID,
	}
	client := h.hub.Register(claims.UserID, caller, conn)

	defer func() {
		h.hub.Unregister(claims.UserID, client)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The feed is one-way; the read loop only notices disconnects. Pings
	// come from the client's write pump.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.loggerf("level=warn msg=websocket read failed user_id=%d err=%v", claims.UserID, err)
			}
			return
		}
	}
}
