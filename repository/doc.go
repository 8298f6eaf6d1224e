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

// Package repository provides a generic repository abstraction built on Bun
// for CRUD operations, derived and criteria queries, pagination, transactions
// and upsert support, plus the Member, Team and Item repositories.
//
// Save decides between INSERT and UPDATE from the entity itself: a
// Persistable entity answers IsNew, a Stateful entity is updated once it is
// Persisted. No existence check is issued before an insert.
//
// A PersistenceContext bound with NewContext keeps one instance per row for
// the lifetime of the context.
package repository
