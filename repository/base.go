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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db      *bun.DB
	table   *schema.Table
	methods *xsync.MapOf[string, *ParsedMethod]
}

// NewRepository returns a generic repository backed by the provided Bun DB.
func NewRepository[T any](db *bun.DB) Repository[T] {
	return newBaseRepository[T](db)
}

func newBaseRepository[T any](db *bun.DB) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{
		db:      db,
		table:   db.Table(reflect.TypeOf((*T)(nil)).Elem()),
		methods: xsync.NewMapOf[string, *ParsedMethod](),
	}
}

func (r *baseRepositoryImpl[T]) DB() *bun.DB { return r.db }

func (r *baseRepositoryImpl[T]) Table() *schema.Table { return r.table }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) ValsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

func (r *baseRepositoryImpl[T]) entityID(entity *T) any {
	if e, ok := any(entity).(Identifiable); ok {
		return e.EntityID()
	}
	return r.table.PKs[0].Value(reflect.ValueOf(entity).Elem()).Interface()
}

func setState(entity any, state types.State) {
	if s, ok := entity.(Stateful); ok {
		s.SetState(state)
	}
}

// isNew decides between INSERT and UPDATE without touching the database.
func isNew(entity any) (bool, error) {
	s, stateful := entity.(Stateful)
	if stateful && s.State() == types.StateReadOnly {
		return false, ErrReadOnlyEntity
	}
	if p, ok := entity.(Persistable); ok {
		return p.IsNew(), nil
	}
	if stateful {
		return s.State() != types.StatePersisted, nil
	}
	return true, nil
}

// manage marks a loaded entity Persisted and returns the instance the bound
// persistence context holds for its id.
func (r *baseRepositoryImpl[T]) manage(ctx context.Context, entity *T) *T {
	setState(entity, types.StatePersisted)
	pc, ok := FromContext(ctx)
	if !ok {
		return entity
	}
	return pc.Attach(r.table.Name, r.entityID(entity), entity).(*T)
}

func (r *baseRepositoryImpl[T]) manageAll(ctx context.Context, entities []*T) []*T {
	for i, e := range entities {
		entities[i] = r.manage(ctx, e)
	}
	return entities
}

func (r *baseRepositoryImpl[T]) clearContext(ctx context.Context) {
	if pc, ok := FromContext(ctx); ok {
		pc.Clear()
	}
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity *T) (*T, error) {
	return r.save(ctx, r.db, entity)
}

func (r *baseRepositoryImpl[T]) save(ctx context.Context, db bun.IDB, entity *T) (*T, error) {
	if entity == nil {
		return nil, fmt.Errorf("entity cannot be nil")
	}
	insert, err := isNew(entity)
	if err != nil {
		return nil, err
	}
	if insert {
		if _, err := db.NewInsert().Model(entity).Exec(ctx); err != nil {
			return nil, fmt.Errorf("insert %s: %w", r.table.Name, err)
		}
	} else if err := r.update(ctx, db, entity); err != nil {
		return nil, err
	}
	setState(entity, types.StatePersisted)
	if pc, ok := FromContext(ctx); ok {
		pc.Put(r.table.Name, r.entityID(entity), entity)
	}
	return entity, nil
}

// SaveAll saves entities in one transaction. On rollback every entity gets
// back its prior ID, state and audit fields, and entities first cached by
// this call are evicted from the bound persistence context.
func (r *baseRepositoryImpl[T]) SaveAll(ctx context.Context, entities ...*T) ([]*T, error) {
	pc, bound := FromContext(ctx)
	snaps := make([]T, len(entities))
	cached := make([]bool, len(entities))
	for i, e := range entities {
		if e == nil {
			continue
		}
		snaps[i] = *e
		cached[i] = bound && pc.Contains(r.table.Name, r.entityID(e))
	}
	saved := make([]*T, 0, len(entities))
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, entity := range entities {
			e, err := r.save(ctx, tx, entity)
			if err != nil {
				return err
			}
			saved = append(saved, e)
		}
		return nil
	})
	if err != nil {
		for i, e := range entities {
			if e == nil {
				continue
			}
			if bound && !cached[i] {
				pc.Evict(r.table.Name, r.entityID(e))
			}
			*e = snaps[i]
		}
		return nil, err
	}
	return saved, nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, bool, error) {
	if pc, ok := FromContext(ctx); ok {
		if cached, ok := pc.Get(r.table.Name, id); ok {
			return cached.(*T), true, nil
		}
	}
	entity := new(T)
	err := whereID(r.db.NewSelect().Model(entity), r.table, true, id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r.manage(ctx, entity), true, nil
}

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	entity, found, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s id=%v", ErrEntityNotFound, r.table.Name, id)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	var entities []*T
	err := orderByPK(r.db.NewSelect().Model(&entities), r.table).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*T)(nil)).Count(ctx)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	err := orderByPK(query, r.table).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := orderByPK(r.db.NewSelect().Model(&entities).Where(query, args...), r.table).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	return r.page(ctx, pageRequest, nil)
}

// page runs a count query and a content query sharing the same predicate.
// decorate only shapes the content query, such as adding a join.
func (r *baseRepositoryImpl[T]) page(ctx context.Context, pageRequest *types.PageRequest, decorate func(*bun.SelectQuery) *bun.SelectQuery) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, 0)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())

	countQuery, err := r.restrict(r.db.NewSelect().Model((*T)(nil)), pageRequest)
	if err != nil {
		return nil, err
	}
	total, err := countQuery.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}

	var entities []*T
	query, err := r.restrict(r.db.NewSelect().Model(&entities), pageRequest)
	if err != nil {
		return nil, err
	}
	if decorate != nil {
		query = decorate(query)
	}
	orders := pageRequest.GetOrders()
	criteria := pageRequest.GetCriteria()
	switch {
	case len(orders) > 0:
		query = query.Order(orders...)
	case criteria != nil && len(criteria.Orders) > 0:
		if query, err = applyOrders(query, r.table, criteria.Orders); err != nil {
			return nil, err
		}
	default:
		query = orderByPK(query, r.table)
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = r.manageAll(ctx, entities)
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) restrict(query *bun.SelectQuery, pageRequest *types.PageRequest) (*bun.SelectQuery, error) {
	if filter := pageRequest.GetFilter(); filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if criteria := pageRequest.GetCriteria(); criteria != nil {
		return applyConditions(query, r.table, true, criteria.Conditions)
	}
	return query, nil
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	return r.update(ctx, r.db, entity)
}

func (r *baseRepositoryImpl[T]) update(ctx context.Context, db bun.IDB, entity *T) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if s, ok := any(entity).(Stateful); ok && s.State() == types.StateReadOnly {
		return ErrReadOnlyEntity
	}
	query := db.NewUpdate().Model(entity).WherePK()
	if im, ok := any(entity).(immutableColumns); ok {
		query = query.ExcludeColumn(im.ImmutableColumns()...)
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.table.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s id=%v", ErrEntityNotFound, r.table.Name, r.entityID(entity))
	}
	return nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	return r.delete(ctx, r.db, entity)
}

func (r *baseRepositoryImpl[T]) delete(ctx context.Context, db bun.IDB, entity *T) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if _, err := db.NewDelete().Model(entity).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", r.table.Name, err)
	}
	setState(entity, types.StateRemoved)
	if pc, ok := FromContext(ctx); ok {
		pc.Evict(r.table.Name, r.entityID(entity))
	}
	return nil
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	_, err := whereID(r.db.NewDelete().Model((*T)(nil)), r.table, false, id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.table.Name, err)
	}
	if pc, ok := FromContext(ctx); ok {
		if cached, ok := pc.Get(r.table.Name, id); ok {
			setState(cached, types.StateRemoved)
			pc.Evict(r.table.Name, id)
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) SaveWithTx(ctx context.Context, tx *bun.Tx, entity *T) (*T, error) {
	if tx == nil {
		return nil, ErrTransactionRequired
	}
	return r.save(ctx, tx, entity)
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, r.db, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error {
	if tx == nil {
		return ErrTransactionRequired
	}
	return r.multipleUpsert(ctx, tx, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	if tx == nil {
		return ErrTransactionRequired
	}
	return r.update(ctx, tx, entity)
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	if tx == nil {
		return ErrTransactionRequired
	}
	return r.delete(ctx, tx, entity)
}

func (r *baseRepositoryImpl[T]) multipleUpsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entity) == 0 {
		return nil
	}

	entities := r.ValsToSlice(entity...)
	var err error
	if r.db.HasFeature(feature.InsertOnConflict) {
		err = r.upsertWithPostgresqlOrSQLite(ctx, db.NewInsert(), fields, duplicateKeys, entities)
	} else if r.db.HasFeature(feature.InsertOnDuplicateKey) {
		err = r.upsertWithMySQL(ctx, db.NewInsert(), fields, entities)
	} else {
		err = r.upsertFallback(ctx, db, entities)
	}
	if err != nil {
		return err
	}
	for _, e := range entities {
		setState(e, types.StatePersisted)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = VALUES(%s)", field, field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertWithPostgresqlOrSQLite(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		for _, pk := range r.table.PKs {
			duplicateKeys = append(duplicateKeys, pk.Name)
		}
	}
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = EXCLUDED.%s", field, field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("CONFLICT (" + strings.Join(duplicateKeys, ",") + ") DO UPDATE").
		Set(strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		_, err := db.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			_, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) FindBy(ctx context.Context, criteria *types.Criteria) ([]*T, error) {
	entities, err := r.selectBy(ctx, r.db, criteria, nil)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

// selectBy loads rows matching criteria without attaching them, so callers
// can mark them before they become managed.
func (r *baseRepositoryImpl[T]) selectBy(ctx context.Context, db bun.IDB, criteria *types.Criteria, decorate func(*bun.SelectQuery) *bun.SelectQuery) ([]*T, error) {
	var entities []*T
	query := db.NewSelect().Model(&entities)
	if criteria != nil {
		var err error
		if query, err = applyConditions(query, r.table, true, criteria.Conditions); err != nil {
			return nil, err
		}
		if query, err = applyOrders(query, r.table, criteria.Orders); err != nil {
			return nil, err
		}
		if criteria.Limit > 0 {
			query = query.Limit(criteria.Limit)
		}
	}
	if criteria == nil || len(criteria.Orders) == 0 {
		query = orderByPK(query, r.table)
	}
	if decorate != nil {
		query = decorate(query)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) FindOneBy(ctx context.Context, criteria *types.Criteria) (*T, error) {
	entity, err := r.uniqueBy(ctx, criteria)
	if err != nil || entity == nil {
		return nil, err
	}
	return r.manage(ctx, entity), nil
}

func (r *baseRepositoryImpl[T]) uniqueBy(ctx context.Context, criteria *types.Criteria) (*T, error) {
	limited := types.Criteria{Limit: 2}
	if criteria != nil {
		limited.Conditions, limited.Orders = criteria.Conditions, criteria.Orders
	}
	entities, err := r.selectBy(ctx, r.db, &limited, nil)
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, nil
	case 1:
		return entities[0], nil
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNonUniqueResult, r.table.Name, criteria)
}

func (r *baseRepositoryImpl[T]) countQuery(criteria *types.Criteria) (*bun.SelectQuery, error) {
	query := r.db.NewSelect().Model((*T)(nil))
	if criteria == nil {
		return query, nil
	}
	return applyConditions(query, r.table, true, criteria.Conditions)
}

func (r *baseRepositoryImpl[T]) CountBy(ctx context.Context, criteria *types.Criteria) (int, error) {
	query, err := r.countQuery(criteria)
	if err != nil {
		return 0, err
	}
	return query.Count(ctx)
}

func (r *baseRepositoryImpl[T]) ExistsBy(ctx context.Context, criteria *types.Criteria) (bool, error) {
	query, err := r.countQuery(criteria)
	if err != nil {
		return false, err
	}
	return query.Exists(ctx)
}

// DeleteBy removes matching rows in one statement and clears the bound
// persistence context.
func (r *baseRepositoryImpl[T]) DeleteBy(ctx context.Context, criteria *types.Criteria) (int64, error) {
	query := r.db.NewDelete().Model((*T)(nil))
	if criteria != nil && len(criteria.Conditions) > 0 {
		var err error
		if query, err = applyConditions(query, r.table, false, criteria.Conditions); err != nil {
			return 0, err
		}
	} else {
		query = query.Where("1 = 1")
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", r.table.Name, err)
	}
	r.clearContext(ctx)
	return res.RowsAffected()
}

// method parses and resolves a method name once per repository.
func (r *baseRepositoryImpl[T]) method(name string, subject Subject) (*ParsedMethod, error) {
	pm, ok := r.methods.Load(name)
	if !ok {
		parsed, err := ParseMethod(name)
		if err != nil {
			return nil, err
		}
		if pm, err = parsed.Resolve(r.table); err != nil {
			return nil, err
		}
		r.methods.Store(name, pm)
	}
	if pm.Subject != subject {
		return nil, fmt.Errorf("%w: %s is a %s query", ErrInvalidMethod, name, pm.Subject)
	}
	return pm, nil
}

func (r *baseRepositoryImpl[T]) derive(name string, subject Subject, args []interface{}) (*types.Criteria, error) {
	pm, err := r.method(name, subject)
	if err != nil {
		return nil, err
	}
	return pm.Bind(args...)
}

func (r *baseRepositoryImpl[T]) FindByMethod(ctx context.Context, method string, args ...interface{}) ([]*T, error) {
	criteria, err := r.derive(method, SubjectFind, args)
	if err != nil {
		return nil, err
	}
	return r.FindBy(ctx, criteria)
}

func (r *baseRepositoryImpl[T]) CountByMethod(ctx context.Context, method string, args ...interface{}) (int, error) {
	criteria, err := r.derive(method, SubjectCount, args)
	if err != nil {
		return 0, err
	}
	return r.CountBy(ctx, criteria)
}

func (r *baseRepositoryImpl[T]) ExistsByMethod(ctx context.Context, method string, args ...interface{}) (bool, error) {
	criteria, err := r.derive(method, SubjectExists, args)
	if err != nil {
		return false, err
	}
	return r.ExistsBy(ctx, criteria)
}

func (r *baseRepositoryImpl[T]) DeleteByMethod(ctx context.Context, method string, args ...interface{}) (int64, error) {
	criteria, err := r.derive(method, SubjectDelete, args)
	if err != nil {
		return 0, err
	}
	return r.DeleteBy(ctx, criteria)
}
