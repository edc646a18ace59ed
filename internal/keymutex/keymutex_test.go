package keymutex

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSameKeySerializes(t *testing.T) {
	var m Mutex
	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("alice")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if diff := cmp.Diff(50, counter); diff != "" {
		t.Errorf("counter mismatch (-want +got):\n%s", diff)
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	var m Mutex
	unlockA := m.Lock("alice")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := m.Lock("bob")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}
