package service

import "errors"

// 业务层通用错误，协议层据此映射到对应的 error 事件码。
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrStrokeNotFound = errors.New("stroke not found")
)
