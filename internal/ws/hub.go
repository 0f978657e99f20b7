package ws

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/chiara-ciriani/collab-paint/internal/metrics"
)

// Sender hub 能够投递消息的最小连接抽象，测试时用假连接替换。
type Sender interface {
	ID() string
	Send(data []byte) bool
}

// Hub 维护房间 → 连接的关系，负责出站消息的扇出。
// 它只管投递，不持有任何画布状态；权威状态在 store 里。
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Sender
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]Sender)}
}

// Join 把连接挂进房间的扇出列表。
func (h *Hub) Join(roomID string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[roomID]
	if !ok {
		conns = make(map[string]Sender)
		h.rooms[roomID] = conns
	}
	conns[s.ID()] = s
}

// Leave 把连接从房间的扇出列表摘除，空房间条目顺手删掉。
func (h *Hub) Leave(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}

// ToConn 只发给单个连接。
func (h *Hub) ToConn(s Sender, eventType string, data any) {
	frame, err := encode(eventType, data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("encode outbound event")
		return
	}
	h.deliver(s, frame)
}

// ToRoom 发给房间内所有连接（含发送方）。
func (h *Hub) ToRoom(roomID, eventType string, data any) {
	h.broadcast(roomID, "", eventType, data)
}

// ToRoomExcept 发给房间内除指定连接外的所有连接。
func (h *Hub) ToRoomExcept(roomID, exceptConnID, eventType string, data any) {
	h.broadcast(roomID, exceptConnID, eventType, data)
}

func (h *Hub) broadcast(roomID, exceptConnID, eventType string, data any) {
	frame, err := encode(eventType, data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("encode outbound event")
		return
	}

	h.mu.RLock()
	conns := make([]Sender, 0, len(h.rooms[roomID]))
	for id, s := range h.rooms[roomID] {
		if id == exceptConnID {
			continue
		}
		conns = append(conns, s)
	}
	h.mu.RUnlock()

	for _, s := range conns {
		h.deliver(s, frame)
	}
}

// deliver 投递失败说明对端写缓冲已满，丢弃本条消息，连接自身的
// 读写超时会负责收掉僵死的对端。
func (h *Hub) deliver(s Sender, frame []byte) {
	if !s.Send(frame) {
		metrics.WsDroppedSendsTotal.Inc()
		log.Warn().Str("conn_id", s.ID()).Msg("send buffer full, dropping message")
	}
}

// Counts 返回当前房间数与连接数，供统计接口使用。
func (h *Hub) Counts() (rooms, conns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms = len(h.rooms)
	for _, m := range h.rooms {
		conns += len(m)
	}
	return rooms, conns
}
