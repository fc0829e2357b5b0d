package serve

import "time"

// debouncer 把一阵密集的触发压成一次到期。底下是 time.Timer，
// 到期一次就停，不会像 ticker 那样一直重复烧
type debouncer struct {
	timer *time.Timer
}

func newDebouncer() *debouncer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &debouncer{timer: t}
}

func (d *debouncer) trigger(delay time.Duration) {
	if !d.timer.Stop() {
		select {
		case <-d.timer.C:
		default:
		}
	}
	d.timer.Reset(delay)
}

func (d *debouncer) C() <-chan time.Time {
	return d.timer.C
}

func (d *debouncer) stop() {
	d.timer.Stop()
}
