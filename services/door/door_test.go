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

package door

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServiceStartsClosedAndUnlocked(t *testing.T) {
	s := New()
	assert.False(t, s.GetIsOpen())
	assert.False(t, s.IsLocked())
}

func TestSetIsOpenNotifiesListeners(t *testing.T) {
	s := New()
	var got []bool
	s.RegisterOnOpenChanged(func(isOpen bool) { got = append(got, isOpen) })

	s.SetIsOpen(true)
	s.SetIsOpen(true) // no-op, state unchanged
	s.SetIsOpen(false)

	assert.Equal(t, []bool{true, false}, got)
}

func TestUnregisterStopsNotifications(t *testing.T) {
	s := New()
	var calls int
	key := s.RegisterOnOpenChanged(func(bool) { calls++ })
	s.SetIsOpen(true)
	s.UnregisterOnOpenChanged(key)
	s.SetIsOpen(false)
	assert.Equal(t, 1, calls)
}

func TestCannotLockAnOpenDoor(t *testing.T) {
	s := New()
	s.SetIsOpen(true)
	assert.False(t, s.SetLock(true))
	assert.False(t, s.IsLocked())
}

func TestLockAndUnlockClosedDoor(t *testing.T) {
	s := New()
	assert.True(t, s.SetLock(true))
	assert.True(t, s.IsLocked())
	assert.True(t, s.SetLock(false))
	assert.False(t, s.IsLocked())
}
