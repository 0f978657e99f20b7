package store

import (
	"sync"
	"time"

	"github.com/chiara-ciriani/collab-paint/internal/models"
)

// RoomStore 持有全部房间状态的内存注册表。
// 所有读写都经过同一把锁，保证对单个房间的修改全部线性化；
// 对外只交出深拷贝快照，调用方拿不到可变引用。
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
	nowFn func() time.Time
}

func New() *RoomStore {
	return &RoomStore{rooms: make(map[string]*models.Room), nowFn: time.Now}
}

// getOrCreateLocked 懒加载房间，调用方必须已持有写锁。
func (s *RoomStore) getOrCreateLocked(roomID string) *models.Room {
	room, ok := s.rooms[roomID]
	if ok {
		return room
	}
	now := s.nowFn().UnixMilli()
	room = &models.Room{ID: roomID, CreatedAt: now, LastActivityAt: now}
	s.rooms[roomID] = room
	return room
}

// GetOrCreate 返回既有房间的快照，不存在则创建一个空房间。
func (s *RoomStore) GetOrCreate(roomID string) models.RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.getOrCreateLocked(roomID))
}

// Get 返回房间快照，不存在时不创建。
func (s *RoomStore) Get(roomID string) (models.RoomSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.RoomSnapshot{}, false
	}
	return snapshot(room), true
}

// AddUser 把用户写入房间（房间不存在则创建），返回写入后的房间快照。
// 同一连接 ID 的旧条目会被替换，以支持重连语义。
func (s *RoomStore) AddUser(roomID string, user models.UserInRoom) models.RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.getOrCreateLocked(roomID)
	users := room.Users[:0]
	for _, u := range room.Users {
		if u.ConnID != user.ConnID {
			users = append(users, u)
		}
	}
	room.Users = append(users, user)
	room.LastActivityAt = s.nowFn().UnixMilli()
	return snapshot(room)
}

// RemoveUser 按连接 ID 移除用户，房间或用户不存在时为 no-op。
func (s *RoomStore) RemoveUser(roomID, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	users := room.Users[:0]
	removed := false
	for _, u := range room.Users {
		if u.ConnID == connID {
			removed = true
			continue
		}
		users = append(users, u)
	}
	room.Users = users
	if removed {
		room.LastActivityAt = s.nowFn().UnixMilli()
	}
}

// FindUser 按连接 ID 查找房间内的用户。
func (s *RoomStore) FindUser(roomID, connID string) (models.UserInRoom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.UserInRoom{}, false
	}
	for _, u := range room.Users {
		if u.ConnID == connID {
			return u, true
		}
	}
	return models.UserInRoom{}, false
}

// AddStroke 追加一条笔划（房间不存在则创建）。
func (s *RoomStore) AddStroke(roomID string, stroke models.Stroke) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.getOrCreateLocked(roomID)
	cp := stroke
	cp.Points = append([]models.Point(nil), stroke.Points...)
	room.Strokes = append(room.Strokes, &cp)
	room.LastActivityAt = s.nowFn().UnixMilli()
}

// AppendStrokePoints 向既有笔划追加点。
// 返回 (房间存在, 笔划存在)；任一不存在时状态不变，也不会凭空建出笔划。
func (s *RoomStore) AppendStrokePoints(roomID, strokeID string, points []models.Point) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false, false
	}
	for _, stroke := range room.Strokes {
		if stroke.ID == strokeID {
			stroke.Points = append(stroke.Points, points...)
			room.LastActivityAt = s.nowFn().UnixMilli()
			return true, true
		}
	}
	return true, false
}

// ClearStrokes 清空房间内全部笔划，用户列表保持不变。
// 返回房间是否存在。
func (s *RoomStore) ClearStrokes(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	room.Strokes = nil
	room.LastActivityAt = s.nowFn().UnixMilli()
	return true
}

// DeleteStrokesByUser 删除指定用户的全部笔划，返回删除数量。
// 只有实际删除了笔划才会刷新活跃时间。
func (s *RoomStore) DeleteStrokesByUser(roomID, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return 0
	}
	kept := room.Strokes[:0]
	removed := 0
	for _, stroke := range room.Strokes {
		if stroke.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, stroke)
	}
	room.Strokes = kept
	if removed > 0 {
		room.LastActivityAt = s.nowFn().UnixMilli()
	}
	return removed
}

// RemoveUserAndSweep 原子地移除用户，并在房间因此清空、且离开前的
// 活跃时间早于 cutoff 时顺带删除房间。判定与删除在同一次持锁内完成，
// 并发的加入要么看到房间还在，要么看到房间已删，不会被删掉成员。
// 返回 (被移除的用户, 是否移除, 房间是否被删除)。
func (s *RoomStore) RemoveUserAndSweep(roomID, connID string, cutoff int64) (models.UserInRoom, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.UserInRoom{}, false, false
	}
	var removedUser models.UserInRoom
	removed := false
	users := room.Users[:0]
	for _, u := range room.Users {
		if u.ConnID == connID {
			removedUser = u
			removed = true
			continue
		}
		users = append(users, u)
	}
	room.Users = users
	if !removed {
		return models.UserInRoom{}, false, false
	}
	// 空闲判定用离开前的活跃时间，离开动作本身不算活跃。
	priorActivity := room.LastActivityAt
	room.LastActivityAt = s.nowFn().UnixMilli()
	if len(room.Users) == 0 && priorActivity < cutoff {
		delete(s.rooms, roomID)
		return removedUser, true, true
	}
	return removedUser, true, false
}

// DeleteRoom 删除房间，返回房间先前是否存在。
func (s *RoomStore) DeleteRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomID]
	delete(s.rooms, roomID)
	return ok
}

// Counts 返回房间/用户/笔划总量，供 REST 统计接口使用。
func (s *RoomStore) Counts() (rooms, users, strokes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms = len(s.rooms)
	for _, room := range s.rooms {
		users += len(room.Users)
		strokes += len(room.Strokes)
	}
	return rooms, users, strokes
}

// snapshot 深拷贝房间状态，笔划点序列逐条复制。
func snapshot(room *models.Room) models.RoomSnapshot {
	strokes := make([]models.Stroke, 0, len(room.Strokes))
	for _, stroke := range room.Strokes {
		cp := *stroke
		cp.Points = append([]models.Point(nil), stroke.Points...)
		strokes = append(strokes, cp)
	}
	users := append([]models.UserInRoom(nil), room.Users...)
	if users == nil {
		users = []models.UserInRoom{}
	}
	return models.RoomSnapshot{
		ID:             room.ID,
		Strokes:        strokes,
		Users:          users,
		CreatedAt:      room.CreatedAt,
		LastActivityAt: room.LastActivityAt,
	}
}
