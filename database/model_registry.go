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

package database

import (
	"context"
	"sort"
	"sync"

	"github.com/uptrace/bun"
)

var defaultRegistry = newModelRegistry()

// SQLModel represents a database model created by migrations. Instance
// returns a Bun struct pointer and Priority orders table creation (lower
// values first, so referenced tables come before referencing ones).
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// SeedFunc populates initial data inside the migration transaction.
type SeedFunc func(ctx context.Context, db bun.IDB) error

// Seeder is a named SeedFunc.
type Seeder struct {
	Name string
	Run  SeedFunc
}

// ModelRegistry stores SQL models, foreign keys and seeders and exposes them
// in a deterministic order.
type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
	RegisterForeignKey(fk ForeignKeyConstraint)
	ForeignKeys() []ForeignKeyConstraint
	RegisterSeeder(seeder Seeder)
	Seeders() []Seeder
}

type modelRegistry struct {
	models      []SQLModel
	foreignKeys []ForeignKeyConstraint
	seeders     []Seeder
	mutex       sync.RWMutex
}

func newModelRegistry() ModelRegistry {
	return &modelRegistry{}
}

// NewModelRegistry returns an empty registry, independent of the default one.
func NewModelRegistry() ModelRegistry {
	return newModelRegistry()
}

func (r *modelRegistry) Register(model SQLModel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.models = append(r.models, model)
}

func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

func (r *modelRegistry) RegisterForeignKey(fk ForeignKeyConstraint) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.foreignKeys = append(r.foreignKeys, fk)
}

func (r *modelRegistry) ForeignKeys() []ForeignKeyConstraint {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	result := make([]ForeignKeyConstraint, len(r.foreignKeys))
	copy(result, r.foreignKeys)
	return result
}

// RegisterSeeder adds a seeder, replacing one registered under the same name.
func (r *modelRegistry) RegisterSeeder(seeder Seeder) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for i, s := range r.seeders {
		if s.Name == seeder.Name {
			r.seeders[i] = seeder
			return
		}
	}
	r.seeders = append(r.seeders, seeder)
}

func (r *modelRegistry) Seeders() []Seeder {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	result := make([]Seeder, len(r.seeders))
	copy(result, r.seeders)
	return result
}

type ModelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct instance and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &ModelAdapter{
		instance: instance,
		priority: priority,
	}
}

func (a *ModelAdapter) Instance() interface{} {
	return a.instance
}

func (a *ModelAdapter) Priority() int {
	return a.priority
}

// DefaultRegistry returns the process-wide registry used by InitDB.
func DefaultRegistry() ModelRegistry {
	return defaultRegistry
}

// RegisteredModel adds a model to the default registry.
func RegisteredModel(model SQLModel) {
	defaultRegistry.Register(model)
}

// RegisterForeignKey adds a constraint to the default registry.
func RegisterForeignKey(fk ForeignKeyConstraint) {
	defaultRegistry.RegisterForeignKey(fk)
}

// RegisterSeeder adds a seeder to the default registry.
func RegisterSeeder(name string, fn SeedFunc) {
	defaultRegistry.RegisterSeeder(Seeder{Name: name, Run: fn})
}

// RegisteredModelInstances returns the default registry's model instances
// sorted by ascending priority.
func RegisteredModelInstances() []interface{} {
	return modelInstances(defaultRegistry)
}

func modelInstances(r ModelRegistry) []interface{} {
	models := r.Models()
	instances := make([]interface{}, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}
