/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// State is the lifecycle tag the repository facade attaches to an entity
// instance. It is never derived from the entity's identifier.
type State int

const (
	StateTransient State = iota
	StatePersisted
	StateReadOnly
	StateRemoved
)

var _ BaseEnum = State(0)

var stateNames = map[State][2]string{
	StateTransient: {"transient", "created in memory, not yet stored"},
	StatePersisted: {"persisted", "stored and managed by a repository"},
	StateReadOnly:  {"read_only", "loaded for reading, changes are never written"},
	StateRemoved:   {"removed", "deleted from the store"},
}

func (s State) IsValid() bool {
	_, ok := stateNames[s]
	return ok
}

func (s State) Number() int {
	if !s.IsValid() {
		return IllegalValue
	}
	return int(s)
}

func (s State) Name() string {
	if v, ok := stateNames[s]; ok {
		return v[0]
	}
	return IllegalName
}

func (s State) Desc() string {
	if v, ok := stateNames[s]; ok {
		return v[1]
	}
	return IllegalDesc
}

func (s State) String() string { return s.Name() }

// LockMode selects the row lock requested by a locking read.
type LockMode int

const (
	LockNone LockMode = iota
	LockPessimisticRead
	LockPessimisticWrite
)

var _ BaseEnum = LockMode(0)

func (m LockMode) IsValid() bool { return m >= LockNone && m <= LockPessimisticWrite }

func (m LockMode) Number() int {
	if !m.IsValid() {
		return IllegalValue
	}
	return int(m)
}

func (m LockMode) Name() string {
	switch m {
	case LockNone:
		return "none"
	case LockPessimisticRead:
		return "pessimistic_read"
	case LockPessimisticWrite:
		return "pessimistic_write"
	}
	return IllegalName
}

// Desc returns the SQL locking clause used after FOR, or an empty string.
func (m LockMode) Desc() string {
	switch m {
	case LockPessimisticRead:
		return "SHARE"
	case LockPessimisticWrite:
		return "UPDATE"
	case LockNone:
		return ""
	}
	return IllegalDesc
}

func (m LockMode) String() string { return m.Name() }
