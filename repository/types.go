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

	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Persistable entities decide themselves whether Save inserts.
type Persistable interface {
	IsNew() bool
}

// Stateful entities carry the lifecycle state assigned by the repository.
type Stateful interface {
	State() types.State
	SetState(state types.State)
}

// Identifiable entities expose their primary key value.
type Identifiable interface {
	EntityID() any
}

type immutableColumns interface {
	ImmutableColumns() []string
}

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	Save(ctx context.Context, entity *T) (*T, error)

	SaveAll(ctx context.Context, entities ...*T) ([]*T, error)

	// FindByID reports absence as (nil, false, nil).
	FindByID(ctx context.Context, id any) (*T, bool, error)

	// GetOne returns ErrEntityNotFound when no row matches.
	GetOne(ctx context.Context, id any) (*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	Count(ctx context.Context) (int, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id any) error
}

// TransactionRepository defines CRUD operations executed within a transaction.
type TransactionRepository[T any] interface {
	SaveWithTx(ctx context.Context, tx *bun.Tx, entity *T) (*T, error)
	UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error
	UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error
	DeleteWithTx(ctx context.Context, tx *bun.Tx, entity *T) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// CriteriaRepository runs structural criteria.
type CriteriaRepository[T any] interface {
	FindBy(ctx context.Context, criteria *types.Criteria) ([]*T, error)

	// FindOneBy returns (nil, nil) when nothing matches and
	// ErrNonUniqueResult when more than one row does.
	FindOneBy(ctx context.Context, criteria *types.Criteria) (*T, error)

	CountBy(ctx context.Context, criteria *types.Criteria) (int, error)
	ExistsBy(ctx context.Context, criteria *types.Criteria) (bool, error)
	DeleteBy(ctx context.Context, criteria *types.Criteria) (int64, error)
}

// DerivedQueryRepository runs queries described by a method name, for example
// FindByUserNameAndAgeGreaterThan.
type DerivedQueryRepository[T any] interface {
	FindByMethod(ctx context.Context, method string, args ...interface{}) ([]*T, error)
	CountByMethod(ctx context.Context, method string, args ...interface{}) (int, error)
	ExistsByMethod(ctx context.Context, method string, args ...interface{}) (bool, error)
	DeleteByMethod(ctx context.Context, method string, args ...interface{}) (int64, error)
}

// Repository combines CRUD, pagination, criteria, derived and transactional
// operations and exposes Bun query builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	CriteriaRepository[T]
	DerivedQueryRepository[T]
	DB() *bun.DB
	Table() *schema.Table
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
