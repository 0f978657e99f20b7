package validate

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/chiara-ciriani/collab-paint/internal/models"
)

// MaxPointsPerUpdate 单次 stroke:update 携带点数的上限，
// 配合传输层的报文大小上限兜底。
const MaxPointsPerUpdate = 100

var (
	roomIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	colorPattern  = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

var errNotObject = errors.New("Payload must be an object")

// JoinRoomPayload room:join 校验通过后的类型化载荷。
type JoinRoomPayload struct {
	RoomID      string
	UserID      string
	DisplayName string
}

type StartStrokePayload struct {
	RoomID     string
	StrokeID   string
	UserID     string
	Color      string
	Thickness  int
	StartPoint models.Point
}

type UpdateStrokePayload struct {
	RoomID   string
	StrokeID string
	Points   []models.Point
}

type EndStrokePayload struct {
	RoomID   string
	StrokeID string
}

type ClearCanvasPayload struct {
	RoomID string
	UserID string
}

type CursorMovePayload struct {
	RoomID   string
	UserID   string
	Position models.Point
	Color    string
}

type DeleteUserStrokesPayload struct {
	RoomID string
	UserID string
}

func validString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func validRoomID(v any) (string, bool) {
	s, ok := validString(v)
	return s, ok && roomIDPattern.MatchString(s)
}

func validUserID(v any) (string, bool) {
	s, ok := validString(v)
	return s, ok && len(s) >= 1 && len(s) <= 100
}

func validColor(v any) (string, bool) {
	s, ok := validString(v)
	return s, ok && colorPattern.MatchString(s)
}

func validThickness(v any) (int, bool) {
	// JSON 数字解码为 float64；厚度必须是整数，带小数的值
	// 直接拒绝，不做静默截断。
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < 1 || f > 50 {
		return 0, false
	}
	return int(f), true
}

func validPoint(v any) (models.Point, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return models.Point{}, false
	}
	x, okX := m["x"].(float64)
	y, okY := m["y"].(float64)
	if !okX || !okY || x < 0 || x > 1 || y < 0 || y > 1 {
		return models.Point{}, false
	}
	return models.Point{X: x, Y: y}, true
}

func validPoints(v any) ([]models.Point, bool) {
	raw, ok := v.([]any)
	if !ok || len(raw) == 0 || len(raw) > MaxPointsPerUpdate {
		return nil, false
	}
	points := make([]models.Point, 0, len(raw))
	for _, item := range raw {
		p, ok := validPoint(item)
		if !ok {
			return nil, false
		}
		points = append(points, p)
	}
	return points, true
}

func asObject(payload any) (map[string]any, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return m, nil
}

// JoinRoom 校验 room:join 载荷，首个失败的规则即返回。
func JoinRoom(payload any) (JoinRoomPayload, error) {
	m, err := asObject(payload)
	if err != nil {
		return JoinRoomPayload{}, err
	}
	roomID, ok := validRoomID(m["roomId"])
	if !ok {
		return JoinRoomPayload{}, errors.New("Invalid roomId format")
	}
	userID, ok := validUserID(m["userId"])
	if !ok {
		return JoinRoomPayload{}, errors.New("Invalid userId format")
	}
	var displayName string
	if v, present := m["displayName"]; present {
		s, ok := validString(v)
		if !ok {
			return JoinRoomPayload{}, errors.New("displayName must be a string")
		}
		displayName = s
	}
	return JoinRoomPayload{RoomID: roomID, UserID: userID, DisplayName: displayName}, nil
}

// StartStroke 校验 stroke:start 载荷。
func StartStroke(payload any) (StartStrokePayload, error) {
	m, err := asObject(payload)
	if err != nil {
		return StartStrokePayload{}, err
	}
	roomID, ok := validRoomID(m["roomId"])
	if !ok {
		return StartStrokePayload{}, errors.New("Invalid roomId format")
	}
	strokeID, ok := validString(m["strokeId"])
	if !ok {
		return StartStrokePayload{}, errors.New("Invalid strokeId")
	}
	userID, ok := validUserID(m["userId"])
	if !ok {
		return StartStrokePayload{}, errors.New("Invalid userId format")
	}
	color, ok := validColor(m["color"])
	if !ok {
		return StartStrokePayload{}, errors.New("Invalid color format (must be hex #RRGGBB)")
	}
	thickness, ok := validThickness(m["thickness"])
	if !ok {
		return StartStrokePayload{}, errors.New("Invalid thickness (must be 1-50)")
	}
	start, ok := validPoint(m["startPoint"])
	if !ok {
		return StartStrokePayload{}, errors.New("Invalid startPoint coordinates")
	}
	return StartStrokePayload{
		RoomID:     roomID,
		StrokeID:   strokeID,
		UserID:     userID,
		Color:      color,
		Thickness:  thickness,
		StartPoint: start,
	}, nil
}

// UpdateStroke 校验 stroke:update 载荷。
func UpdateStroke(payload any) (UpdateStrokePayload, error) {
	m, err := asObject(payload)
	if err != nil {
		return UpdateStrokePayload{}, err
	}
	roomID, ok := validRoomID(m["roomId"])
	if !ok {
		return UpdateStrokePayload{}, errors.New("Invalid roomId format")
	}
	strokeID, ok := validString(m["strokeId"])
	if !ok {
		return UpdateStrokePayload{}, errors.New("Invalid strokeId")
	}
	points, ok := validPoints(m["points"])
	if !ok {
		return UpdateStrokePayload{}, errors.New("Invalid points array (must be 1-100 valid points)")
	}
	return UpdateStrokePayload{RoomID: roomID, StrokeID: strokeID, Points: points}, nil
}

// EndStroke 校验 stroke:end 载荷。
func EndStroke(payload any) (EndStrokePayload, error) {
	m, err := asObject(payload)
	if err != nil {
		return EndStrokePayload{}, err
	}
	roomID, ok := validRoomID(m["roomId"])
	if !ok {
		return EndStrokePayload{}, errors.New("Invalid roomId format")
	}
	strokeID, ok := validString(m["strokeId"])
	if !ok {
		return EndStrokePayload{}, errors.New("Invalid strokeId")
	}
	return EndStrokePayload{RoomID: roomID, StrokeID: strokeID}, nil
}

// ClearCanvas 校验 canvas:clear 载荷，userId 可选。
func ClearCanvas(payload any) (ClearCanvasPayload, error) {
	m, err := asObject(payload)
	if err != nil {
		return ClearCanvasPayload{}, err
	}
	roomID, ok := validRoomID(m["roomId"])
	if !ok {
		return ClearCanvasPayload{}, errors.New("Invalid roomId format")
	}
	var userID string
	if v, present := m["userId"]; present {
		s, ok := validUserID(v)
		if !ok {
			return ClearCanvasPayload{}, errors.New("Invalid userId format")
		}
		userID = s
	}
	return ClearCanvasPayload{RoomID: roomID, UserID: userID}, nil
}

// CursorMove 校验 cursor:move 载荷，color 可选。
func CursorMove(payload any) (CursorMovePayload, error) {
	m, err := asObject(payload)
	if err != nil {
		return CursorMovePayload{}, err
	}
	roomID, ok := validRoomID(m["roomId"])
	if !ok {
		return CursorMovePayload{}, errors.New("Invalid roomId format")
	}
	userID, ok := validUserID(m["userId"])
	if !ok {
		return CursorMovePayload{}, errors.New("Invalid userId format")
	}
	position, ok := validPoint(m["position"])
	if !ok {
		return CursorMovePayload{}, errors.New("Invalid position coordinates")
	}
	var color string
	if v, present := m["color"]; present {
		s, ok := validColor(v)
		if !ok {
			return CursorMovePayload{}, errors.New("Invalid color format")
		}
		color = s
	}
	return CursorMovePayload{RoomID: roomID, UserID: userID, Position: position, Color: color}, nil
}

// DeleteUserStrokes 校验 strokes:delete:user 载荷。
func DeleteUserStrokes(payload any) (DeleteUserStrokesPayload, error) {
	m, err := asObject(payload)
	if err != nil {
		return DeleteUserStrokesPayload{}, err
	}
	roomID, ok := validRoomID(m["roomId"])
	if !ok {
		return DeleteUserStrokesPayload{}, errors.New("Invalid roomId format")
	}
	userID, ok := validUserID(m["userId"])
	if !ok {
		return DeleteUserStrokesPayload{}, errors.New("Invalid userId format")
	}
	return DeleteUserStrokesPayload{RoomID: roomID, UserID: userID}, nil
}
