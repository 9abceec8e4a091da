package session

import (
	"sync"
	"time"
)

// PeriodicTask is a cancellable repeating callback.
type PeriodicTask interface {
	// Stop cancels future runs. It does not wait for a run in progress.
	Stop()
}

// Scheduler starts fn every interval until the returned task is stopped.
type Scheduler func(interval time.Duration, fn func()) PeriodicTask

type tickerTask struct {
	stop chan struct{}
	once sync.Once
}

// Every is the Scheduler backed by time.Ticker. fn runs on a dedicated
// goroutine, one run at a time.
func Every(interval time.Duration, fn func()) PeriodicTask {
	t := &tickerTask{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				select {
				case <-t.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
	return t
}

func (t *tickerTask) Stop() {
	t.once.Do(func() {
		close(t.stop)
	})
}
