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

package repository

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

type persistenceContextKey struct{}

// PersistenceContext is an identity map bound to a context. Within it a row
// is represented by at most one instance per table.
type PersistenceContext struct {
	entities *xsync.MapOf[string, any]
}

// NewContext returns a child context carrying a fresh PersistenceContext.
func NewContext(ctx context.Context) (context.Context, *PersistenceContext) {
	pc := &PersistenceContext{entities: xsync.NewMapOf[string, any]()}
	return context.WithValue(ctx, persistenceContextKey{}, pc), pc
}

// FromContext returns the PersistenceContext bound to ctx, if any.
func FromContext(ctx context.Context) (*PersistenceContext, bool) {
	pc, ok := ctx.Value(persistenceContextKey{}).(*PersistenceContext)
	return pc, ok && pc != nil
}

func entityKey(table string, id any) string {
	return fmt.Sprintf("%s#%v", table, id)
}

func (pc *PersistenceContext) Get(table string, id any) (any, bool) {
	return pc.entities.Load(entityKey(table, id))
}

func (pc *PersistenceContext) Put(table string, id any, entity any) {
	pc.entities.Store(entityKey(table, id), entity)
}

// Attach returns the instance already managed for the key, or stores entity
// and returns it.
func (pc *PersistenceContext) Attach(table string, id any, entity any) any {
	actual, _ := pc.entities.LoadOrStore(entityKey(table, id), entity)
	return actual
}

func (pc *PersistenceContext) Evict(table string, id any) {
	pc.entities.Delete(entityKey(table, id))
}

func (pc *PersistenceContext) Contains(table string, id any) bool {
	_, ok := pc.Get(table, id)
	return ok
}

// Clear detaches every managed instance.
func (pc *PersistenceContext) Clear() {
	pc.entities.Clear()
}

func (pc *PersistenceContext) Len() int {
	return pc.entities.Size()
}
