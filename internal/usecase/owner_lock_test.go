package usecase

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test: 同一ownerの操作は直列化される
func TestOwnerLockerSerializesSameOwner(t *testing.T) {
	l := NewOwnerLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := l.Lock("alice")
			defer h.Unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

// Test: 使い終わったownerのエントリはmapに残らない
func TestOwnerLockerReleasesEntries(t *testing.T) {
	l := NewOwnerLocker()

	l.Lock("alice").Unlock()
	l.Lock("bob").Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock("carol").Unlock()
		}()
	}
	wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}

// Test: 別ownerのロックは互いにブロックしない
func TestOwnerLockerIndependentOwners(t *testing.T) {
	l := NewOwnerLocker()

	ha := l.Lock("alice")
	hb := l.Lock("bob") // aliceを保持したまま取れること
	hb.Unlock()
	ha.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}
