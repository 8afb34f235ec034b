package uploadsvc

import (
	"context"
	"sync"
)

// keyLocks: таблица блокировок по ключу загрузки. Запись живёт, пока на неё есть ссылки,
// поэтому таблица не растёт с числом когда-либо виденных ключей.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (l *keyLocks) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *keyLocks) releaseRef(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock ждёт блокировку key или отмену ctx.
func (l *keyLocks) Lock(ctx context.Context, key string) error {
	kl := l.acquireRef(key)
	select {
	case kl.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.releaseRef(key, kl)
		return ctx.Err()
	}
}

// TryLock берёт блокировку, только если она свободна.
func (l *keyLocks) TryLock(key string) bool {
	kl := l.acquireRef(key)
	select {
	case kl.sem <- struct{}{}:
		return true
	default:
		l.releaseRef(key, kl)
		return false
	}
}

// Unlock освобождает блокировку, взятую Lock или TryLock.
func (l *keyLocks) Unlock(key string) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		panic("uploadsvc: unlock of unlocked key " + key)
	}

	<-kl.sem
	l.releaseRef(key, kl)
}

func (l *keyLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
