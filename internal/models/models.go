package models

// Point 画布上的一个归一化坐标点，x/y 均落在 [0,1] 区间。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke 一条笔划：样式属性加上只增不删的点序列，插入顺序即渲染层级。
type Stroke struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Color     string  `json:"color"`
	Thickness int     `json:"thickness"`
	Points    []Point `json:"points"`
	CreatedAt int64   `json:"createdAt"`
}

// UserInRoom 房间内的一个在线成员，以连接 ID 为主键（同一逻辑用户可多连接）。
type UserInRoom struct {
	ConnID      string `json:"-"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	JoinedAt    int64  `json:"-"`
}

// Room 单个房间的权威状态，只允许 store 持有可变引用。
// 时间戳统一用 Unix 毫秒，与线上协议保持一致。
type Room struct {
	ID             string
	Strokes        []*Stroke
	Users          []UserInRoom
	CreatedAt      int64
	LastActivityAt int64
}

// RoomSnapshot 交给调用方的只读房间视图，与权威状态完全解耦。
type RoomSnapshot struct {
	ID             string       `json:"roomId"`
	Strokes        []Stroke     `json:"strokes"`
	Users          []UserInRoom `json:"users"`
	CreatedAt      int64        `json:"createdAt"`
	LastActivityAt int64        `json:"lastActivityAt"`
}
