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

package datastudy

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/repository"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier or an error wrapping
	// repository.ErrEntityNotFound.
	Get(ctx context.Context, id any) (*T, error)

	// Find returns the entity and whether it exists.
	Find(ctx context.Context, id any) (*T, bool, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// Count returns the number of stored entities.
	Count(ctx context.Context) (int, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts or updates entities in one transaction.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// SaveWithTx saves one entity within an existing transaction.
	SaveWithTx(ctx context.Context, tx *bun.Tx, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// SelectBuilder returns a Bun select query builder.
	SelectBuilder() *bun.SelectQuery
}

type baseServiceImpl[T any] struct {
	mu   sync.Mutex
	repo repository.Repository[T]
	db   func() *bun.DB
}

// NewService returns a Service using the generic repository backed by the
// global database connection. The connection is resolved on first use.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{db: database.GetDB}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB[T any](db *bun.DB) Service[T] {
	return &baseServiceImpl[T]{db: func() *bun.DB { return db }}
}

func (s *baseServiceImpl[T]) baseRepo() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil {
		db := s.db()
		if db == nil {
			return nil, fmt.Errorf("database not initialized")
		}
		s.repo = repository.NewRepository[T](db)
	}
	return s.repo, nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, id any) (*T, bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, false, err
	}
	return repo.FindByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context) (int, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, filter)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	_, err = repo.SaveAll(ctx, model...)
	return err
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, tx *bun.Tx, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	_, err = repo.SaveWithTx(ctx, tx, model)
	return err
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	repo, err := s.baseRepo()
	if err != nil {
		return nil
	}
	return repo.NewSelect()
}
