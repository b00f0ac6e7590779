// Package clock предоставляет подменяемый источник времени.
//
// Компоненты, чьё поведение зависит от срока жизни записей (хранилище
// кодов, выпуск токенов, сборщик просроченных записей), получают Clock
// через конструктор. В рабочем режиме используется Real(), в тестах Fake(),
// время которого двигается только вызовом Advance.
package clock

import "time"

// Clock абстрагирует получение текущего времени и периодические таймеры.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *Ticker
}

// Ticker доставляет тики в канал C. Канал имеет ёмкость 1: если получатель
// не успевает, лишние тики отбрасываются, как у time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop останавливает тикер. Канал C не закрывается.
func (t *Ticker) Stop() { t.stop() }

type realClock struct{}

// Real возвращает Clock на основе пакета time.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}
