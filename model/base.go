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

package model

import (
	"context"
	"time"

	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

// nowFunc is replaced in tests.
var nowFunc = time.Now

// Entity carries the lifecycle state assigned by the repository facade.
type Entity struct {
	state types.State
}

// State returns the lifecycle state; the zero value is Transient.
func (e *Entity) State() types.State {
	if !e.state.IsValid() {
		return types.StateTransient
	}
	return e.state
}

func (e *Entity) SetState(state types.State) {
	e.state = state
}

// BaseTimeEntity stamps creation and modification times.
type BaseTimeEntity struct {
	CreateTime time.Time `bun:"create_time,nullzero" json:"create_time"`
	UpdateTime time.Time `bun:"update_time,nullzero" json:"update_time"`
}

var _ bun.BeforeAppendModelHook = (*BaseTimeEntity)(nil)

func (b *BaseTimeEntity) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		now := nowFunc()
		b.CreateTime = now
		b.UpdateTime = now
	case *bun.UpdateQuery:
		b.UpdateTime = nowFunc()
	}
	return nil
}

// ImmutableColumns lists columns that updates never write.
func (b *BaseTimeEntity) ImmutableColumns() []string {
	return []string{"create_time"}
}
