package usecase

import "sync"

// ownerごとのクリティカルセクション。
// 同一ownerのカート変更とチェックアウトを直列化する（owner間は独立）。
// CartUsecaseとCheckoutUsecaseで同じインスタンスを共有すること。
type OwnerLocker struct {
	mu    sync.Mutex
	locks map[string]*ownerLockEntry
}

type ownerLockEntry struct {
	owner string
	mu    sync.Mutex
	refs  int
}

// ロック済みのエントリ。Unlockで解放し、待ちがいなければmapからも消す。
type OwnerLock struct {
	locker *OwnerLocker
	entry  *ownerLockEntry
}

func NewOwnerLocker() *OwnerLocker {
	return &OwnerLocker{locks: map[string]*ownerLockEntry{}}
}

// ownerのロックを取得してロック済みで返す。
// 使い方: defer l.Lock(owner).Unlock()
func (l *OwnerLocker) Lock(owner string) *OwnerLock {
	l.mu.Lock()
	e, ok := l.locks[owner]
	if !ok {
		e = &ownerLockEntry{owner: owner}
		l.locks[owner] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return &OwnerLock{locker: l, entry: e}
}

func (h *OwnerLock) Unlock() {
	h.entry.mu.Unlock()

	// 参照が尽きたらmapから消す。ownerは呼び出し側任意の文字列なので
	// 放置するとエントリが増え続ける。
	l := h.locker
	l.mu.Lock()
	h.entry.refs--
	if h.entry.refs == 0 {
		delete(l.locks, h.entry.owner)
	}
	l.mu.Unlock()
}
