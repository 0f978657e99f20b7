package ratelimit

import (
	"sync"
	"time"
)

// Rule 单个事件类型的滑动窗口配置：窗口内最多放行 MaxEvents 次。
type Rule struct {
	MaxEvents int
	Window    time.Duration
}

// DefaultRules 各事件类型的默认配额。
// 表中没有的事件类型不限速。
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"stroke:update":       {MaxEvents: 60, Window: time.Second},
		"cursor:move":         {MaxEvents: 20, Window: time.Second},
		"stroke:start":        {MaxEvents: 10, Window: time.Second},
		"stroke:end":          {MaxEvents: 10, Window: time.Second},
		"canvas:clear":        {MaxEvents: 2, Window: 5 * time.Second},
		"strokes:delete:user": {MaxEvents: 5, Window: time.Second},
	}
}

type connState struct {
	events  map[string][]time.Time
	touched time.Time
}

// Limiter 按连接、按事件类型做滑动窗口准入控制。
// 每次检查只保留窗口内的时间戳；过期的连接状态随检查机会性回收。
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	conns   map[string]*connState
	gcEvery time.Duration
	lastGC  time.Time
	nowFn   func() time.Time
}

func New(rules map[string]Rule) *Limiter {
	return &Limiter{
		rules:   rules,
		conns:   make(map[string]*connState),
		gcEvery: time.Minute,
		nowFn:   time.Now,
	}
}

// Admit 判断该连接的此类事件是否放行，放行时记录本次时间戳。
func (l *Limiter) Admit(connID, event string) bool {
	rule, ok := l.rules[event]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	state, ok := l.conns[connID]
	if !ok {
		state = &connState{events: make(map[string][]time.Time)}
		l.conns[connID] = state
	}
	state.touched = now

	cutoff := now.Add(-rule.Window)
	recent := state.events[event][:0]
	for _, ts := range state.events[event] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	admitted := len(recent) < rule.MaxEvents
	if admitted {
		recent = append(recent, now)
	}
	state.events[event] = recent

	l.maybeGC(now)
	return admitted
}

// Forget 清掉连接的全部限速状态，连接断开时调用。
func (l *Limiter) Forget(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conns, connID)
}

// maybeGC 机会性回收久未活动的连接状态，调用方必须已持锁。
func (l *Limiter) maybeGC(now time.Time) {
	if now.Sub(l.lastGC) < l.gcEvery {
		return
	}
	l.lastGC = now
	for connID, state := range l.conns {
		if now.Sub(state.touched) > l.gcEvery {
			delete(l.conns, connID)
		}
	}
}
