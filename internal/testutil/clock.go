// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed start time of every FakeClock.
var Epoch = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// FakeClock is a manually advanced clock. It is safe for concurrent use.
//
// Pass clock.Now wherever a component takes a func() time.Time.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock reading Epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: Epoch}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
