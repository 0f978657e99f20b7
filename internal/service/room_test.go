package service

import (
	"errors"
	"testing"
	"time"

	"github.com/chiara-ciriani/collab-paint/internal/models"
	"github.com/chiara-ciriani/collab-paint/internal/store"
)

func newTestService(ttl time.Duration) *RoomService {
	return NewRoomService(store.New(), ttl)
}

func TestJoinRoom_ReturnsSnapshotWithJoiner(t *testing.T) {
	svc := newTestService(5 * time.Minute)

	snap := svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c1", UserID: "alice"})
	if snap.ID != "room-1" {
		t.Errorf("snapshot ID = %q, want %q", snap.ID, "room-1")
	}
	if len(snap.Users) != 1 || snap.Users[0].UserID != "alice" {
		t.Fatalf("Users = %+v, want [alice]", snap.Users)
	}
	if snap.Users[0].JoinedAt == 0 {
		t.Error("JoinedAt not set")
	}

	snap = svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c2", UserID: "bob"})
	if len(snap.Users) != 2 {
		t.Errorf("len(Users) = %d, want 2", len(snap.Users))
	}
}

func TestLeaveRoom_ResolvesUserID(t *testing.T) {
	svc := newTestService(5 * time.Minute)
	svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c1", UserID: "alice"})
	svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c2", UserID: "bob"})

	userID, ok := svc.LeaveRoom("room-1", "c1")
	if !ok || userID != "alice" {
		t.Errorf("LeaveRoom() = (%q, %v), want (alice, true)", userID, ok)
	}

	if _, ok := svc.LeaveRoom("room-1", "c1"); ok {
		t.Error("second LeaveRoom() for same conn should report false")
	}
	if _, ok := svc.LeaveRoom("no-such-room", "c2"); ok {
		t.Error("LeaveRoom() on missing room should report false")
	}
}

func TestLeaveRoom_KeepsRecentlyActiveEmptyRoom(t *testing.T) {
	svc := newTestService(5 * time.Minute)
	svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c1", UserID: "alice"})

	svc.LeaveRoom("room-1", "c1")

	// 刚清空的房间还在活跃窗口内，不应被回收。
	if _, ok := svc.Snapshot("room-1"); !ok {
		t.Error("recently active empty room was deleted")
	}
}

func TestLeaveRoom_DeletesExpiredEmptyRoom(t *testing.T) {
	svc := newTestService(5 * time.Minute)
	base := time.UnixMilli(1_000_000)
	svc.nowFn = func() time.Time { return base }
	svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c1", UserID: "alice"})

	// 把时钟拨过回收阈值之后再离开。
	svc.nowFn = func() time.Time { return base.Add(6 * time.Minute) }
	svc.LeaveRoom("room-1", "c1")

	if _, ok := svc.Snapshot("room-1"); ok {
		t.Error("expired empty room was not deleted")
	}
}

func TestStartStroke(t *testing.T) {
	svc := newTestService(5 * time.Minute)

	stroke := svc.StartStroke("room-1", "s1", "alice", "#FF0000", 5, models.Point{X: 0.5, Y: 0.5})
	if stroke.ID != "s1" || stroke.UserID != "alice" {
		t.Errorf("stroke = %+v", stroke)
	}
	if len(stroke.Points) != 1 || stroke.Points[0].X != 0.5 {
		t.Errorf("Points = %+v, want single start point", stroke.Points)
	}
	if stroke.CreatedAt == 0 {
		t.Error("CreatedAt not set")
	}

	snap, ok := svc.Snapshot("room-1")
	if !ok || len(snap.Strokes) != 1 {
		t.Fatalf("room snapshot = (%+v, %v), want one stroke", snap, ok)
	}
}

func TestUpdateStroke_Errors(t *testing.T) {
	svc := newTestService(5 * time.Minute)
	svc.StartStroke("room-1", "s1", "alice", "#FF0000", 5, models.Point{X: 0.1, Y: 0.1})
	points := []models.Point{{X: 0.2, Y: 0.2}}

	if err := svc.UpdateStroke("room-1", "s1", points); err != nil {
		t.Errorf("UpdateStroke() = %v, want nil", err)
	}
	if err := svc.UpdateStroke("room-1", "no-such-stroke", points); !errors.Is(err, ErrStrokeNotFound) {
		t.Errorf("UpdateStroke() = %v, want ErrStrokeNotFound", err)
	}
	if err := svc.UpdateStroke("no-such-room", "s1", points); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("UpdateStroke() = %v, want ErrRoomNotFound", err)
	}
}

func TestClearRoom(t *testing.T) {
	svc := newTestService(5 * time.Minute)
	svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c1", UserID: "alice"})
	svc.StartStroke("room-1", "s1", "alice", "#FF0000", 5, models.Point{X: 0.1, Y: 0.1})

	if err := svc.ClearRoom("room-1"); err != nil {
		t.Fatalf("ClearRoom() = %v, want nil", err)
	}
	snap, _ := svc.Snapshot("room-1")
	if len(snap.Strokes) != 0 {
		t.Errorf("len(Strokes) = %d, want 0", len(snap.Strokes))
	}
	if len(snap.Users) != 1 {
		t.Errorf("len(Users) = %d, want 1 (clear must not evict users)", len(snap.Users))
	}

	if err := svc.ClearRoom("no-such-room"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("ClearRoom() = %v, want ErrRoomNotFound", err)
	}
}

func TestDeleteUserStrokes(t *testing.T) {
	svc := newTestService(5 * time.Minute)
	svc.StartStroke("room-1", "s1", "alice", "#FF0000", 5, models.Point{X: 0.1, Y: 0.1})
	svc.StartStroke("room-1", "s2", "bob", "#00FF00", 3, models.Point{X: 0.2, Y: 0.2})
	svc.StartStroke("room-1", "s3", "alice", "#FF0000", 5, models.Point{X: 0.3, Y: 0.3})

	if got := svc.DeleteUserStrokes("room-1", "alice"); got != 2 {
		t.Errorf("DeleteUserStrokes() = %d, want 2", got)
	}
	if got := svc.DeleteUserStrokes("room-1", "alice"); got != 0 {
		t.Errorf("repeat DeleteUserStrokes() = %d, want 0", got)
	}
	snap, _ := svc.Snapshot("room-1")
	if len(snap.Strokes) != 1 || snap.Strokes[0].UserID != "bob" {
		t.Errorf("remaining strokes = %+v, want only bob's", snap.Strokes)
	}
}

// 完整走一遍典型协作过程：两人加入、画笔划、清屏、相继离开、房间过期回收。
func TestRoomLifecycle(t *testing.T) {
	svc := newTestService(5 * time.Minute)
	base := time.UnixMilli(1_000_000)
	now := base
	svc.nowFn = func() time.Time { return now }

	svc.JoinRoom("canvas-42", models.UserInRoom{ConnID: "c1", UserID: "alice"})
	svc.JoinRoom("canvas-42", models.UserInRoom{ConnID: "c2", UserID: "bob"})

	svc.StartStroke("canvas-42", "s1", "alice", "#112233", 4, models.Point{X: 0.1, Y: 0.1})
	if err := svc.UpdateStroke("canvas-42", "s1", []models.Point{{X: 0.2, Y: 0.2}, {X: 0.3, Y: 0.3}}); err != nil {
		t.Fatalf("UpdateStroke() = %v", err)
	}
	svc.StartStroke("canvas-42", "s2", "bob", "#445566", 8, models.Point{X: 0.9, Y: 0.9})

	snap, _ := svc.Snapshot("canvas-42")
	if len(snap.Strokes) != 2 || len(snap.Strokes[0].Points) != 3 {
		t.Fatalf("snapshot = %+v, want 2 strokes with s1 having 3 points", snap.Strokes)
	}

	if err := svc.ClearRoom("canvas-42"); err != nil {
		t.Fatalf("ClearRoom() = %v", err)
	}
	// 清屏后晚到的 update 必须报笔划缺失。
	if err := svc.UpdateStroke("canvas-42", "s1", []models.Point{{X: 0.4, Y: 0.4}}); !errors.Is(err, ErrStrokeNotFound) {
		t.Fatalf("UpdateStroke() after clear = %v, want ErrStrokeNotFound", err)
	}

	if userID, ok := svc.LeaveRoom("canvas-42", "c1"); !ok || userID != "alice" {
		t.Fatalf("LeaveRoom(c1) = (%q, %v)", userID, ok)
	}
	if _, ok := svc.Snapshot("canvas-42"); !ok {
		t.Fatal("room deleted while bob still present")
	}

	now = base.Add(10 * time.Minute)
	if userID, ok := svc.LeaveRoom("canvas-42", "c2"); !ok || userID != "bob" {
		t.Fatalf("LeaveRoom(c2) = (%q, %v)", userID, ok)
	}
	if _, ok := svc.Snapshot("canvas-42"); ok {
		t.Fatal("empty expired room survived last leave")
	}
}

func TestStats(t *testing.T) {
	svc := newTestService(5 * time.Minute)
	svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c1", UserID: "alice"})
	svc.StartStroke("room-1", "s1", "alice", "#FF0000", 5, models.Point{X: 0.1, Y: 0.1})

	rooms, users, strokes := svc.Stats()
	if rooms != 1 || users != 1 || strokes != 1 {
		t.Errorf("Stats() = (%d, %d, %d), want (1, 1, 1)", rooms, users, strokes)
	}
}
