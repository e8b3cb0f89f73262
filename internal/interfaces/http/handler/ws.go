package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
	ws "github.com/memtier/backend/internal/infrastructure/websocket"
)

const (
	// writeWait 单次写入的最长等待时间
	writeWait = 10 * time.Second
	// pongWait 读方向的心跳超时
	pongWait = 60 * time.Second
	// pingPeriod 必须小于 pongWait
	pingPeriod = 54 * time.Second
)

// WSHandler 质量告警推送的 WebSocket 处理器
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(hub *ws.Hub, cfg *config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			// 守护进程只监听本机，放开同源检查
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.NewModuleLogger("interfaces", "websocket"),
	}
}

// Serve 升级连接并接入 Hub
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &ws.Connection{Send: make(chan []byte, 64)}
	h.hub.Register(client)

	go h.writePump(conn, client)
	go h.readPump(conn, client)
}

// writePump 将 Hub 广播写入连接，定期发送 ping 维持心跳
func (h *WSHandler) writePump(conn *websocket.Conn, client *ws.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了该连接
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只消费 pong 和关闭帧，客户端不向服务端发消息
func (h *WSHandler) readPump(conn *websocket.Conn, client *ws.Connection) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
