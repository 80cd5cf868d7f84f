// Copyright 2025 EngFlow Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package door is a stand-in basic-service implementation for a single
// vehicle door: it tracks open/closed and locked/unlocked state and
// notifies registered listeners when the open state changes, mirroring
// the shape of a generated VSS basic service without depending on any
// generated signal code.
package door

import "sync"

// OnOpenChanged is invoked whenever the door's open state changes.
type OnOpenChanged func(isOpen bool)

// Service is a minimal front-door basic service: it holds open/locked
// state and fans out open-state changes to registered listeners.
type Service struct {
	mu        sync.Mutex
	isOpen    bool
	isLocked  bool
	listeners map[*OnOpenChanged]OnOpenChanged
}

// New returns a Service with the door closed and unlocked.
func New() *Service {
	return &Service{listeners: make(map[*OnOpenChanged]OnOpenChanged)}
}

// SetIsOpen updates the door's open state and notifies every registered
// listener if the state actually changed.
func (s *Service) SetIsOpen(value bool) {
	s.mu.Lock()
	changed := s.isOpen != value
	s.isOpen = value
	var listeners []OnOpenChanged
	if changed {
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(value)
	}
}

// GetIsOpen reports the door's current open state.
func (s *Service) GetIsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// SetLock attempts to lock or unlock the door. A door may not be locked
// while it is open; attempting to do so returns false and leaves the
// lock state unchanged.
func (s *Service) SetLock(value bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value && s.isOpen {
		return false
	}
	s.isLocked = value
	return true
}

// IsLocked reports the door's current lock state.
func (s *Service) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLocked
}

// RegisterOnOpenChanged adds a listener invoked on every future open-state
// change, keyed by the address of the callback value so the identical
// listener can later be removed with UnregisterOnOpenChanged.
func (s *Service) RegisterOnOpenChanged(cb OnOpenChanged) *OnOpenChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := &cb
	s.listeners[key] = cb
	return key
}

// UnregisterOnOpenChanged removes a listener previously returned by
// RegisterOnOpenChanged.
func (s *Service) UnregisterOnOpenChanged(key *OnOpenChanged) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, key)
}
