/* Copyright (C) 2025 Quill contributors
 *
 * This file is part of Quill.
 *
 * Quill is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Quill is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Quill.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package connectivity observes whether the remote service is reachable
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/log"
)

// State is the device's connectivity as last observed. It is transient and
// never persisted.
type State int

const (
	// Unavailable means the remote service could not be reached
	Unavailable State = iota
	// Available means the remote service responded to the last probe
	Available
)

func (s State) String() string {
	if s == Available {
		return "available"
	}
	return "unavailable"
}

// ProbeFunc checks reachability of the remote service. A nil error means reachable.
type ProbeFunc func(ctx context.Context) error

// Monitor periodically probes the remote service and publishes connectivity
// transitions to subscribers.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration

	mu     sync.Mutex
	state  State
	subs   map[int]chan State
	nextID int
}

// NewMonitor returns a monitor using the given probe at the given interval.
// The initial state is Unavailable until the first probe succeeds.
func NewMonitor(probe ProbeFunc, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = consts.ProbeInterval
	}

	return &Monitor{
		probe:    probe,
		interval: interval,
		state:    Unavailable,
		subs:     map[int]chan State{},
	}
}

// Current returns the last observed state
func (m *Monitor) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Set records a state observation and publishes it if it is a transition.
// It is used by the probe loop and by hosts that receive OS-level network
// events directly.
func (m *Monitor) Set(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == s {
		return
	}
	m.state = s

	log.Debug("connectivity is now %s\n", s)

	// publishing under the mutex keeps the send ordered against Unsubscribe
	// closing the channel
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
			// drop the oldest observation when the subscriber lags
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Subscribe registers an observer of connectivity transitions
func (m *Monitor) Subscribe() (int, <-chan State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	ch := make(chan State, 8)
	m.subs[id] = ch

	return id, ch
}

// Unsubscribe removes the observer with the given id
func (m *Monitor) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.subs[id]; ok {
		close(ch)
		delete(m.subs, id)
	}
}

// ProbeOnce runs a single probe and records the result
func (m *Monitor) ProbeOnce(ctx context.Context) State {
	if err := m.probe(ctx); err != nil {
		m.Set(Unavailable)
	} else {
		m.Set(Available)
	}

	return m.Current()
}

// Run probes the remote service until the context is cancelled
func (m *Monitor) Run(ctx context.Context) {
	m.ProbeOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ProbeOnce(ctx)
		}
	}
}
