package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chiara-ciriani/collab-paint/internal/config"
	"github.com/chiara-ciriani/collab-paint/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client 一条客户端连接。roomID 是连接唯一的派生状态，
// 只在 readPump 驱动的事件处理里读写，不需要加锁。
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	roomID string
}

func (c *Client) ID() string { return c.id }

// Send 非阻塞投递，写缓冲满时返回 false，由调用方决定丢弃。
func (c *Client) Send(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Serve 返回 WebSocket 升级入口，每个连接分配一个服务端连接 ID。
func Serve(disp *Dispatcher, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade")
			return
		}
		client := &Client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan []byte, cfg.SendBuffer),
		}
		metrics.WsConnections.Inc()
		log.Info().Str("conn_id", client.id).Msg("client connected")

		go client.writePump()
		client.readPump(disp, cfg.MaxPayloadBytes)
	}
}

func (c *Client) readPump(disp *Dispatcher, maxPayload int64) {
	// send 通道不关闭：广播方可能还握着本连接的引用，
	// writePump 靠底层连接关闭后的写错误退出。
	defer func() {
		disp.Disconnect(c)
		_ = c.conn.Close()
		metrics.WsConnections.Dec()
		log.Info().Str("conn_id", c.id).Msg("client disconnected")
	}()
	c.conn.SetReadLimit(maxPayload)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn_id", c.id).Msg("read error")
			}
			return
		}
		disp.Dispatch(c, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
