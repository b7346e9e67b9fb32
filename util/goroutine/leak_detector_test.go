package goroutine

import (
	"sync"
	"testing"
	"time"
)

func TestAssertNoLeaks_NoLeak(t *testing.T) {
	AssertNoLeaks(t)

	done := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(done)
	}()
	<-done
}

func TestAssertNoLeaks_WithWaitGroup(t *testing.T) {
	AssertNoLeaks(t)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		Go(&wg, "worker", nil, func() {
			time.Sleep(20 * time.Millisecond)
		})
	}
	wg.Wait()
}
