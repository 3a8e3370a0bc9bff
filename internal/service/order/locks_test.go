package order

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	const iterations = 200
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := km.Lock(1)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4*iterations, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock(1)
	defer unlock()

	// A different key must not block; the test times out otherwise.
	done := make(chan struct{})
	go func() {
		other := km.Lock(2)
		other()
		close(done)
	}()
	<-done
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock(7)
	km.mu.Lock()
	require.Len(t, km.locks, 1)
	km.mu.Unlock()

	unlock()
	km.mu.Lock()
	assert.Empty(t, km.locks, "released entries must be removed from the map")
	km.mu.Unlock()
}
