package enet

import (
	"sync/atomic"
)

// guard 共享所有权计数
//
// 最后一个 owner 释放时执行 teardown，且只执行一次。
// 计数是原子的：未关闭句柄的清理函数在运行时自己的 goroutine 上执行。
type guard struct {
	refs     atomic.Int64
	teardown func()
}

func newGuard(teardown func()) *guard {
	return &guard{teardown: teardown}
}

// own 增加一个所有者
func (g *guard) own() *owner {
	g.refs.Add(1)
	return &owner{guard: g}
}

func (g *guard) release() {
	switch n := g.refs.Add(-1); {
	case n == 0:
		g.teardown()
	case n < 0:
		panic("enet: guard released more times than owned")
	}
}

// owner 一个句柄持有的引用，释放幂等
//
// owner 与句柄分开分配，可以作为 runtime.AddCleanup 的参数。
type owner struct {
	guard    *guard
	released atomic.Bool
}

// release 释放引用，返回本次调用是否真正释放
func (o *owner) release() bool {
	if o.released.Swap(true) {
		return false
	}
	o.guard.release()
	return true
}

func (o *owner) live() bool {
	return !o.released.Load()
}

func releaseOwner(o *owner) {
	o.release()
}
