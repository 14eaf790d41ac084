// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xsync implements latches: signals that can be waited for until they are triggered,
// and that stay triggered forever after.
package xsync

import "sync"

// Latch implements a "latch" synchronization mechanism.
//
// A Latch is a signal that can be waited for until it is triggered.
// Once triggered it never changes state, it's forever triggered.
type Latch struct {
	once sync.Once
	wait chan struct{}
}

// NewLatch returns an un-triggered latch.
func NewLatch() *Latch {
	return &Latch{wait: make(chan struct{})}
}

// Trigger latch. Triggering an already triggered latch is a no-op.
func (l *Latch) Trigger() {
	l.once.Do(func() { close(l.wait) })
}

// Wait waits for the latch to be triggered.
func (l *Latch) Wait() {
	<-l.wait
}

// Test checks whether the latch has been triggered.
func (l *Latch) Test() bool {
	select {
	case <-l.wait:
		return true
	default:
		return false
	}
}

// WaitChan returns the channel that one can use on a `select` to check when
// the latch triggers.
// The returned channel is closed when the latch is triggered.
func (l *Latch) WaitChan() <-chan struct{} {
	return l.wait
}

// LatchWithValue is a Latch that carries the value given by the first call to Trigger.
// For instance the error that caused a group of goroutines to stop.
type LatchWithValue[T any] struct {
	latch Latch
	value T
}

// NewLatchWithValue returns an un-triggered latch.
func NewLatchWithValue[T any]() *LatchWithValue[T] {
	return &LatchWithValue[T]{latch: Latch{wait: make(chan struct{})}}
}

// Trigger the latch with the given value. Only the first call sets the value, and it returns true.
// Later calls return false and the value is discarded.
func (l *LatchWithValue[T]) Trigger(value T) (triggered bool) {
	l.latch.once.Do(func() {
		l.value = value
		close(l.latch.wait)
		triggered = true
	})
	return
}

// Wait waits for the latch to be triggered, and returns its value.
func (l *LatchWithValue[T]) Wait() T {
	l.latch.Wait()
	return l.value
}

// Test checks whether the latch has been triggered.
func (l *LatchWithValue[T]) Test() bool {
	return l.latch.Test()
}

// Value returns the value of the latch if it has been triggered, without blocking.
func (l *LatchWithValue[T]) Value() (value T, triggered bool) {
	if !l.latch.Test() {
		return
	}
	return l.value, true
}

// WaitChan returns the channel that is closed when the latch triggers.
func (l *LatchWithValue[T]) WaitChan() <-chan struct{} {
	return l.latch.WaitChan()
}
