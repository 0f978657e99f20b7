package ws

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/chiara-ciriani/collab-paint/internal/metrics"
	"github.com/chiara-ciriani/collab-paint/internal/models"
	"github.com/chiara-ciriani/collab-paint/internal/ratelimit"
	"github.com/chiara-ciriani/collab-paint/internal/service"
	"github.com/chiara-ciriani/collab-paint/internal/validate"
)

// Dispatcher 把入站事件按固定顺序送过 限速 → 校验 → service，
// 再按事件各自的受众规则扇出。
type Dispatcher struct {
	svc     *service.RoomService
	hub     *Hub
	limiter *ratelimit.Limiter
}

func NewDispatcher(svc *service.RoomService, hub *Hub, limiter *ratelimit.Limiter) *Dispatcher {
	return &Dispatcher{svc: svc, hub: hub, limiter: limiter}
}

// route 事件的分发表条目：限速被拒是否静默丢弃，
// 以及兜底 recover 时回给发送方的错误码。
type route struct {
	silentLimit bool
	faultCode   string
	handle      func(*Dispatcher, *Client, any)
}

// 分发表本身就是协议定义：事件名 → (限速策略, 处理函数)。
// cursor:move 和 stroke:update 是连续流，被限速时静默丢弃，
// 避免给刷屏的客户端回灌等量的 error。
var routes = map[string]route{
	EvtRoomJoin:          {faultCode: "JOIN_ERROR", handle: (*Dispatcher).handleJoin},
	EvtStrokeStart:       {faultCode: "STROKE_START_ERROR", handle: (*Dispatcher).handleStrokeStart},
	EvtStrokeUpdate:      {silentLimit: true, faultCode: "STROKE_UPDATE_ERROR", handle: (*Dispatcher).handleStrokeUpdate},
	EvtStrokeEnd:         {faultCode: "STROKE_END_ERROR", handle: (*Dispatcher).handleStrokeEnd},
	EvtCanvasClear:       {faultCode: "CLEAR_ERROR", handle: (*Dispatcher).handleCanvasClear},
	EvtCursorMove:        {silentLimit: true, faultCode: "CURSOR_ERROR", handle: (*Dispatcher).handleCursorMove},
	EvtDeleteUserStrokes: {faultCode: "DELETE_ERROR", handle: (*Dispatcher).handleDeleteUserStrokes},
}

// Dispatch 处理一帧入站消息。任何一步失败都只影响这一条消息。
func (d *Dispatcher) Dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		d.emitError(c, "Invalid message format", CodeInvalidPayload)
		return
	}

	r, ok := routes[env.Type]
	if !ok {
		log.Debug().Str("conn_id", c.id).Str("event", env.Type).Msg("unknown event type")
		return
	}

	if !d.limiter.Admit(c.id, env.Type) {
		metrics.WsRateLimitedTotal.WithLabelValues(env.Type).Inc()
		if !r.silentLimit {
			d.emitError(c, "Rate limit exceeded", CodeRateLimited)
		}
		return
	}
	metrics.WsEventsTotal.WithLabelValues(env.Type).Inc()

	var payload any
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &payload)
	}

	// 单条事件的故障边界：处理函数 panic 不拖垮连接，也不波及其他房间。
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("conn_id", c.id).Str("event", env.Type).Any("panic", rec).Msg("event handler panicked")
			d.emitError(c, "Internal server error", r.faultCode)
		}
	}()
	r.handle(d, c, payload)
}

// Disconnect 传输层断开时触发：视同离开房间并清理限速状态。
func (d *Dispatcher) Disconnect(c *Client) {
	d.limiter.Forget(c.id)
	if c.roomID == "" {
		return
	}
	d.leaveCurrentRoom(c)
}

// leaveCurrentRoom 把连接移出当前房间并通知余下成员。
func (d *Dispatcher) leaveCurrentRoom(c *Client) {
	roomID := c.roomID
	c.roomID = ""
	d.hub.Leave(roomID, c.id)
	userID, ok := d.svc.LeaveRoom(roomID, c.id)
	if !ok {
		return
	}
	log.Info().Str("room_id", roomID).Str("user_id", userID).Msg("user left room")
	d.hub.ToRoom(roomID, EvtUserLeft, UserLeftPayload{UserID: userID})
}

func (d *Dispatcher) handleJoin(c *Client, payload any) {
	p, err := validate.JoinRoom(payload)
	if err != nil {
		d.emitError(c, err.Error(), CodeInvalidPayload)
		return
	}

	// 重复加入当前房间按客户端重试处理：名册照常更新、重发 room:state，
	// 但不再给同房间广播一次 user:joined。
	rejoin := c.roomID == p.RoomID
	if c.roomID != "" && !rejoin {
		d.leaveCurrentRoom(c)
	}

	snap := d.svc.JoinRoom(p.RoomID, models.UserInRoom{
		ConnID:      c.id,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
	})
	d.hub.Join(p.RoomID, c)
	c.roomID = p.RoomID
	if !rejoin {
		log.Info().Str("room_id", p.RoomID).Str("user_id", p.UserID).Str("conn_id", c.id).Msg("user joined room")
	}

	users := make([]RoomUser, 0, len(snap.Users))
	for _, u := range snap.Users {
		users = append(users, RoomUser{UserID: u.UserID, DisplayName: u.DisplayName})
	}
	d.hub.ToConn(c, EvtRoomState, RoomStatePayload{
		RoomID:  p.RoomID,
		Strokes: snap.Strokes,
		Users:   users,
	})
	if !rejoin {
		d.hub.ToRoomExcept(p.RoomID, c.id, EvtUserJoined, UserJoinedPayload{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
		})
	}
}

func (d *Dispatcher) handleStrokeStart(c *Client, payload any) {
	p, err := validate.StartStroke(payload)
	if err != nil {
		d.emitError(c, err.Error(), CodeInvalidPayload)
		return
	}
	d.svc.StartStroke(p.RoomID, p.StrokeID, p.UserID, p.Color, p.Thickness, p.StartPoint)
	d.hub.ToRoomExcept(p.RoomID, c.id, EvtStrokeStarted, StrokeStartedPayload{
		StrokeID:   p.StrokeID,
		UserID:     p.UserID,
		Color:      p.Color,
		Thickness:  p.Thickness,
		StartPoint: p.StartPoint,
	})
}

func (d *Dispatcher) handleStrokeUpdate(c *Client, payload any) {
	p, err := validate.UpdateStroke(payload)
	if err != nil {
		d.emitError(c, err.Error(), CodeInvalidPayload)
		return
	}
	if err := d.svc.UpdateStroke(p.RoomID, p.StrokeID, p.Points); err != nil {
		// 晚到的 update 撞上 clear 是正常现象，按普通错误回给发送方。
		if errors.Is(err, service.ErrRoomNotFound) {
			d.emitError(c, "Room not found", CodeRoomNotFound)
		} else {
			d.emitError(c, "Stroke not found", CodeStrokeNotFound)
		}
		return
	}
	d.hub.ToRoomExcept(p.RoomID, c.id, EvtStrokeUpdated, StrokeUpdatedPayload{
		StrokeID: p.StrokeID,
		Points:   p.Points,
	})
}

func (d *Dispatcher) handleStrokeEnd(c *Client, payload any) {
	p, err := validate.EndStroke(payload)
	if err != nil {
		d.emitError(c, err.Error(), CodeInvalidPayload)
		return
	}
	// 笔划记录本身不变，end 只是转发给其他人收笔。
	d.hub.ToRoomExcept(p.RoomID, c.id, EvtStrokeEnded, StrokeEndedPayload{StrokeID: p.StrokeID})
}

func (d *Dispatcher) handleCanvasClear(c *Client, payload any) {
	p, err := validate.ClearCanvas(payload)
	if err != nil {
		d.emitError(c, err.Error(), CodeInvalidPayload)
		return
	}
	if err := d.svc.ClearRoom(p.RoomID); err != nil {
		d.emitError(c, "Room not found", CodeRoomNotFound)
		return
	}
	log.Info().Str("room_id", p.RoomID).Str("cleared_by", p.UserID).Msg("canvas cleared")
	d.hub.ToRoomExcept(p.RoomID, c.id, EvtCanvasCleared, CanvasClearedPayload{
		RoomID:    p.RoomID,
		ClearedBy: p.UserID,
	})
}

func (d *Dispatcher) handleCursorMove(c *Client, payload any) {
	p, err := validate.CursorMove(payload)
	if err != nil {
		// 光标是高频流，坏载荷直接丢弃，不值得回错误。
		return
	}
	snap, ok := d.svc.Snapshot(p.RoomID)
	if !ok {
		return
	}
	var displayName string
	found := false
	for _, u := range snap.Users {
		if u.UserID == p.UserID {
			displayName = u.DisplayName
			found = true
			break
		}
	}
	if !found {
		return
	}
	color := p.Color
	if color == "" {
		color = "#000000"
		for _, s := range snap.Strokes {
			if s.UserID == p.UserID {
				color = s.Color
				break
			}
		}
	}
	d.hub.ToRoomExcept(p.RoomID, c.id, EvtCursorMove, CursorMovePayload{
		UserID:      p.UserID,
		DisplayName: displayName,
		Position:    p.Position,
		Color:       color,
	})
}

func (d *Dispatcher) handleDeleteUserStrokes(c *Client, payload any) {
	p, err := validate.DeleteUserStrokes(payload)
	if err != nil {
		d.emitError(c, err.Error(), CodeInvalidPayload)
		return
	}
	if _, ok := d.svc.Snapshot(p.RoomID); !ok {
		d.emitError(c, "Room not found", CodeRoomNotFound)
		return
	}
	removed := d.svc.DeleteUserStrokes(p.RoomID, p.UserID)
	log.Info().Str("room_id", p.RoomID).Str("user_id", p.UserID).Int("removed", removed).Msg("user strokes deleted")
	// 删除要在发起方本地也生效，所以含发送方一起广播。
	d.hub.ToRoom(p.RoomID, EvtUserStrokesDeleted, UserStrokesDeletedPayload{UserID: p.UserID})
}

// emitError 只回给发送方，绝不广播。
func (d *Dispatcher) emitError(c *Client, message, code string) {
	log.Warn().Str("conn_id", c.id).Str("code", code).Str("error", message).Msg("event rejected")
	d.hub.ToConn(c, EvtError, ErrorPayload{Message: message, Code: code})
}
