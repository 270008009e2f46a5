// Package limiter 按 key（客户端地址）计数的固定窗口限流。
//
// golang.org/x/time/rate 是令牌桶，超限后每隔 window/limit 就放行一次；
// 登录限流要求超限后整窗拒绝，直到窗口翻转，所以这里自己计数。
package limiter

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

type Window struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

func NewWindow(limit int, period time.Duration, now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Window{
		limit:   limit,
		period:  period,
		now:     now,
		windows: make(map[string]*window),
	}
}

// Allow 计入一次尝试；本窗口内已满 limit 次则拒绝，并返回距窗口翻转的剩余时间。
// 成功登录不会回退计数。
func (w *Window) Allow(key string) (bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.sweepLocked(now)

	win, ok := w.windows[key]
	if !ok || now.Sub(win.start) >= w.period {
		win = &window{start: now}
		w.windows[key] = win
	}
	if win.count >= w.limit {
		return false, win.start.Add(w.period).Sub(now)
	}
	win.count++
	return true, 0
}

// sweepLocked 每个周期最多扫一次，丢弃已翻转的窗口
func (w *Window) sweepLocked(now time.Time) {
	if now.Sub(w.lastSweep) < w.period {
		return
	}
	w.lastSweep = now
	for k, win := range w.windows {
		if now.Sub(win.start) >= w.period {
			delete(w.windows, k)
		}
	}
}

func (w *Window) Limit() int { return w.limit }

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.windows)
}

func (w *Window) Reset() {
	w.mu.Lock()
	w.windows = make(map[string]*window)
	w.mu.Unlock()
}
