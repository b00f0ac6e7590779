package clock

import (
	"sync"
	"time"
)

// FakeClock детерминированные часы для тестов. Время стоит на месте, пока
// не вызван Advance; тикеры срабатывают во время Advance.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*fakeTicker
	changed *sync.Cond
}

type fakeTicker struct {
	ch       chan time.Time
	next     time.Time
	interval time.Duration
	stopped  bool
}

// Fake возвращает FakeClock, установленные на момент initial.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now возвращает текущее фиктивное время.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker регистрирует тикер, который срабатывает при продвижении часов.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ft := &fakeTicker{
		ch:       make(chan time.Time, 1),
		next:     c.current.Add(d),
		interval: d,
	}
	c.tickers = append(c.tickers, ft)
	c.changed.Broadcast()

	return &Ticker{
		C: ft.ch,
		stop: func() {
			c.mu.Lock()
			ft.stopped = true
			c.changed.Broadcast()
			c.mu.Unlock()
		},
	}
}

// Advance сдвигает часы на d и доставляет тики всем тикерам, чей срок наступил.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	for _, ft := range c.tickers {
		if ft.stopped {
			continue
		}
		for !ft.next.After(c.current) {
			select {
			case ft.ch <- ft.next:
			default:
			}
			ft.next = ft.next.Add(ft.interval)
		}
	}
}

// WaitForTickers блокируется, пока число активных тикеров не достигнет n.
// Позволяет тесту дождаться, когда горутина создаст тикер, до вызова Advance.
func (c *FakeClock) WaitForTickers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.activeTickers() < n {
		c.changed.Wait()
	}
}

func (c *FakeClock) activeTickers() int {
	n := 0
	for _, ft := range c.tickers {
		if !ft.stopped {
			n++
		}
	}
	return n
}
