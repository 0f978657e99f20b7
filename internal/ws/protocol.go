package ws

import (
	"encoding/json"

	"github.com/chiara-ciriani/collab-paint/internal/models"
)

// 客户端 → 服务端事件。
const (
	EvtRoomJoin          = "room:join"
	EvtStrokeStart       = "stroke:start"
	EvtStrokeUpdate      = "stroke:update"
	EvtStrokeEnd         = "stroke:end"
	EvtCanvasClear       = "canvas:clear"
	EvtCursorMove        = "cursor:move"
	EvtDeleteUserStrokes = "strokes:delete:user"
)

// 服务端 → 客户端事件。
const (
	EvtRoomState          = "room:state"
	EvtStrokeStarted      = "stroke:started"
	EvtStrokeUpdated      = "stroke:updated"
	EvtStrokeEnded        = "stroke:ended"
	EvtCanvasCleared      = "canvas:cleared"
	EvtUserJoined         = "user:joined"
	EvtUserLeft           = "user:left"
	EvtUserStrokesDeleted = "strokes:deleted:user"
	EvtError              = "error"
)

// 发给发送方的错误码。
const (
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeStrokeNotFound = "STROKE_NOT_FOUND"
	CodeRateLimited    = "RATE_LIMITED"
)

// Envelope 双向统一的消息信封。
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RoomUser room:state 里的用户条目。
type RoomUser struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// RoomStatePayload 加入成功后只发给新连接的全量房间状态。
type RoomStatePayload struct {
	RoomID  string          `json:"roomId"`
	Strokes []models.Stroke `json:"strokes"`
	Users   []RoomUser      `json:"users"`
}

type StrokeStartedPayload struct {
	StrokeID   string       `json:"strokeId"`
	UserID     string       `json:"userId"`
	Color      string       `json:"color"`
	Thickness  int          `json:"thickness"`
	StartPoint models.Point `json:"startPoint"`
}

type StrokeUpdatedPayload struct {
	StrokeID string         `json:"strokeId"`
	Points   []models.Point `json:"points"`
}

type StrokeEndedPayload struct {
	StrokeID string `json:"strokeId"`
}

type CanvasClearedPayload struct {
	RoomID    string `json:"roomId"`
	ClearedBy string `json:"clearedBy,omitempty"`
}

type UserJoinedPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

type UserLeftPayload struct {
	UserID string `json:"userId"`
}

type CursorMovePayload struct {
	UserID      string       `json:"userId"`
	DisplayName string       `json:"displayName,omitempty"`
	Position    models.Point `json:"position"`
	Color       string       `json:"color"`
}

type UserStrokesDeletedPayload struct {
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// encode 把事件和载荷打包成一帧出站消息。
func encode(eventType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Data: raw})
}
