package keylock

import (
	"sync"
)

// KeyLock 按关键字（这里通常是对端udid）加锁，保证同一个对端的
// 信任关系拆除操作串行执行
type KeyLock struct {
	mutex sync.Mutex
	locks map[string]*innerLock
}

// NewKeyLock NewKeyLock
func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: make(map[string]*innerLock),
	}
}

// Lock 根据关键字加锁
func (l *KeyLock) Lock(key string) {
	l.mutex.Lock()
	il, ok := l.locks[key]
	if !ok {
		il = &innerLock{}
		l.locks[key] = il
	}
	il.count++
	l.mutex.Unlock()

	il.Lock()
}

// Unlock 根据关键字解锁，引用计数归零时回收锁对象
func (l *KeyLock) Unlock(key string) {
	l.mutex.Lock()
	il, ok := l.locks[key]
	if ok {
		il.count--
		if il.count == 0 {
			delete(l.locks, key)
		}
	}
	l.mutex.Unlock()

	if ok {
		il.Unlock()
	}
}

type innerLock struct {
	count int64
	sync.Mutex
}
