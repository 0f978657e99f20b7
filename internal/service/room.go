package service

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chiara-ciriani/collab-paint/internal/models"
	"github.com/chiara-ciriani/collab-paint/internal/store"
)

// RoomService 在注册表之上封装房间策略：加入/离开、笔划生命周期、空房回收。
type RoomService struct {
	store        *store.RoomStore
	emptyRoomTTL time.Duration
	nowFn        func() time.Time
}

func NewRoomService(st *store.RoomStore, emptyRoomTTL time.Duration) *RoomService {
	return &RoomService{store: st, emptyRoomTTL: emptyRoomTTL, nowFn: time.Now}
}

// JoinRoom 把用户写入房间并返回当前房间快照，供调用方推给新连接。
func (s *RoomService) JoinRoom(roomID string, user models.UserInRoom) models.RoomSnapshot {
	user.JoinedAt = s.nowFn().UnixMilli()
	return s.store.AddUser(roomID, user)
}

// LeaveRoom 按连接 ID 把用户移出房间，返回解析出的逻辑用户 ID。
// 房间被清空且离开前的活跃时间早于回收阈值时，顺手删除房间——
// 回收只在离开时机会性触发，不依赖后台定时器。移除与回收判定
// 由 store 在一次持锁内完成，挤在中间的并发加入不会丢失。
func (s *RoomService) LeaveRoom(roomID, connID string) (string, bool) {
	cutoff := s.nowFn().Add(-s.emptyRoomTTL).UnixMilli()
	user, removed, deleted := s.store.RemoveUserAndSweep(roomID, connID, cutoff)
	if !removed {
		return "", false
	}
	if deleted {
		log.Info().Str("room_id", roomID).Msg("deleted empty room after inactivity period")
	}
	return user.UserID, true
}

// StartStroke 以起始点构造一条新笔划并入库。
func (s *RoomService) StartStroke(roomID, strokeID, userID, color string, thickness int, start models.Point) models.Stroke {
	stroke := models.Stroke{
		ID:        strokeID,
		UserID:    userID,
		Color:     color,
		Thickness: thickness,
		Points:    []models.Point{start},
		CreatedAt: s.nowFn().UnixMilli(),
	}
	s.store.AddStroke(roomID, stroke)
	return stroke
}

// UpdateStroke 向既有笔划追加点；房间或笔划缺失分别返回对应错误。
func (s *RoomService) UpdateStroke(roomID, strokeID string, points []models.Point) error {
	roomOK, strokeOK := s.store.AppendStrokePoints(roomID, strokeID, points)
	if !roomOK {
		return ErrRoomNotFound
	}
	if !strokeOK {
		return ErrStrokeNotFound
	}
	return nil
}

// ClearRoom 清空房间内全部笔划。
func (s *RoomService) ClearRoom(roomID string) error {
	if !s.store.ClearStrokes(roomID) {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteUserStrokes 删除指定用户的全部笔划，没有匹配不算错误。
func (s *RoomService) DeleteUserStrokes(roomID, userID string) int {
	return s.store.DeleteStrokesByUser(roomID, userID)
}

// Snapshot 返回只读房间视图。
func (s *RoomService) Snapshot(roomID string) (models.RoomSnapshot, bool) {
	return s.store.Get(roomID)
}

// Stats 返回房间/用户/笔划总量。
func (s *RoomService) Stats() (rooms, users, strokes int) {
	return s.store.Counts()
}
