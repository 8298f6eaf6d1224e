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

	"github.com/tomoncle/datastudy/model"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

func init() {
	MustRegisterNamedQuery(model.NamedQueryFindByUsername, "?TableAlias.user_name = :userName")
}

// MemberRepositoryCustom holds hand-written member queries composed into
// MemberRepository.
type MemberRepositoryCustom interface {
	FindMemberCustom(ctx context.Context) ([]*model.Member, error)
}

type MemberRepository interface {
	Repository[model.Member]
	MemberRepositoryCustom

	FindByUserNameAndAgeGreaterThan(ctx context.Context, userName string, age int) ([]*model.Member, error)
	FindTop3HelloBy(ctx context.Context) ([]*model.Member, error)
	FindByUsername(ctx context.Context, userName string) ([]*model.Member, error)
	FindUser(ctx context.Context, userName string, age int) ([]*model.Member, error)
	FindUserNameList(ctx context.Context) ([]string, error)
	FindMemberDto(ctx context.Context) ([]*model.MemberDto, error)
	FindByNames(ctx context.Context, names []string) ([]*model.Member, error)
	FindListByUserName(ctx context.Context, userName string) ([]*model.Member, error)
	FindMemberByUserName(ctx context.Context, userName string) (*model.Member, error)
	FindOptionalByUserName(ctx context.Context, userName string) (*model.Member, bool, error)
	FindByPage(ctx context.Context, age, offset, limit int) ([]*model.Member, error)
	TotalCount(ctx context.Context, age int) (int, error)
	FindByAge(ctx context.Context, age int, pageRequest *types.PageRequest) (*types.Pagination[model.Member], error)
	BulkAgePlus(ctx context.Context, age int) (int, error)
	FindMemberFetchJoin(ctx context.Context) ([]*model.Member, error)
	FindAllWithTeam(ctx context.Context) ([]*model.Member, error)
	FindEntityGraphByUserName(ctx context.Context, userName string) ([]*model.Member, error)
	LoadTeams(ctx context.Context, members []*model.Member) error
	FindByTeamID(ctx context.Context, teamID int64) ([]*model.Member, error)
	FindReadOnlyByUserName(ctx context.Context, userName string) (*model.Member, error)
	FindLockByUserName(ctx context.Context, tx *bun.Tx, userName string) ([]*model.Member, error)
}

type memberRepositoryImpl struct {
	*baseRepositoryImpl[model.Member]
	MemberRepositoryCustom
	teams *baseRepositoryImpl[model.Team]
}

// NewMemberRepository returns the member repository with the default custom
// implementation.
func NewMemberRepository(db *bun.DB) MemberRepository {
	return NewMemberRepositoryWithCustom(db, &memberRepositoryCustomImpl{db: db})
}

// NewMemberRepositoryWithCustom composes custom into the member repository.
func NewMemberRepositoryWithCustom(db *bun.DB, custom MemberRepositoryCustom) MemberRepository {
	return &memberRepositoryImpl{
		baseRepositoryImpl:     newBaseRepository[model.Member](db),
		MemberRepositoryCustom: custom,
		teams:                  newBaseRepository[model.Team](db),
	}
}

func (r *memberRepositoryImpl) FindByUserNameAndAgeGreaterThan(ctx context.Context, userName string, age int) ([]*model.Member, error) {
	return r.FindByMethod(ctx, "FindByUserNameAndAgeGreaterThan", userName, age)
}

func (r *memberRepositoryImpl) FindTop3HelloBy(ctx context.Context) ([]*model.Member, error) {
	return r.FindByMethod(ctx, "FindTop3HelloBy")
}

func (r *memberRepositoryImpl) FindByUsername(ctx context.Context, userName string) ([]*model.Member, error) {
	nq, err := LookupNamedQuery(model.NamedQueryFindByUsername)
	if err != nil {
		return nil, err
	}
	args, err := nq.Args(map[string]interface{}{"userName": userName})
	if err != nil {
		return nil, err
	}
	return r.Query(ctx, nq.Where, args...)
}

func (r *memberRepositoryImpl) FindUser(ctx context.Context, userName string, age int) ([]*model.Member, error) {
	return r.Query(ctx, "?TableAlias.user_name = ? AND ?TableAlias.age = ?", userName, age)
}

func (r *memberRepositoryImpl) FindUserNameList(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*model.Member)(nil)).
		Column("user_name").
		OrderExpr("?TableAlias.member_id ASC").
		Scan(ctx, &names)
	return names, err
}

// FindMemberDto inner joins team, so members without a team are left out.
func (r *memberRepositoryImpl) FindMemberDto(ctx context.Context) ([]*model.MemberDto, error) {
	dtos := make([]*model.MemberDto, 0)
	err := r.db.NewSelect().
		Model((*model.Member)(nil)).
		ColumnExpr("?TableAlias.member_id AS id").
		ColumnExpr("?TableAlias.user_name AS user_name").
		ColumnExpr("t.name AS team_name").
		Join("JOIN team AS t ON t.team_id = ?TableAlias.team_id").
		OrderExpr("?TableAlias.member_id ASC").
		Scan(ctx, &dtos)
	return dtos, err
}

func (r *memberRepositoryImpl) FindByNames(ctx context.Context, names []string) ([]*model.Member, error) {
	return r.FindByMethod(ctx, "FindByUserNameIn", names)
}

func (r *memberRepositoryImpl) FindListByUserName(ctx context.Context, userName string) ([]*model.Member, error) {
	members, err := r.FindByMethod(ctx, "FindListByUserName", userName)
	if members == nil && err == nil {
		members = []*model.Member{}
	}
	return members, err
}

func (r *memberRepositoryImpl) FindMemberByUserName(ctx context.Context, userName string) (*model.Member, error) {
	criteria, err := r.derive("FindMemberByUserName", SubjectFind, []interface{}{userName})
	if err != nil {
		return nil, err
	}
	return r.FindOneBy(ctx, criteria)
}

func (r *memberRepositoryImpl) FindOptionalByUserName(ctx context.Context, userName string) (*model.Member, bool, error) {
	member, err := r.FindMemberByUserName(ctx, userName)
	return member, member != nil, err
}

// FindByPage returns at most limit members of age after skipping offset
// matches. A limit below 1 yields no rows.
func (r *memberRepositoryImpl) FindByPage(ctx context.Context, age, offset, limit int) ([]*model.Member, error) {
	if limit <= 0 {
		return []*model.Member{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	var members []*model.Member
	err := r.db.NewSelect().
		Model(&members).
		Where("?TableAlias.age = ?", age).
		OrderExpr("?TableAlias.user_name DESC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, members), nil
}

func (r *memberRepositoryImpl) TotalCount(ctx context.Context, age int) (int, error) {
	return r.CountByMethod(ctx, "CountByAge", age)
}

// FindByAge pages members of age with their team joined; the count query
// skips the join.
func (r *memberRepositoryImpl) FindByAge(ctx context.Context, age int, pageRequest *types.PageRequest) (*types.Pagination[model.Member], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, 0)
	}
	criteria := types.Where(types.Eq("Age", age))
	if c := pageRequest.GetCriteria(); c != nil {
		criteria.Conditions = append(criteria.Conditions, c.Conditions...)
		criteria.Orders = c.Orders
	}
	return r.page(ctx, pageRequest.WithCriteria(criteria), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation("Team")
	})
}

// BulkAgePlus adds 10 to the age of every member at least age years old in a
// single statement. Instances already loaded are not refreshed, but the bound
// persistence context is cleared so later finds reload.
func (r *memberRepositoryImpl) BulkAgePlus(ctx context.Context, age int) (int, error) {
	res, err := r.db.NewUpdate().
		Model((*model.Member)(nil)).
		Set("age = age + 10").
		Where("age >= ?", age).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk update member age: %w", err)
	}
	r.clearContext(ctx)
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *memberRepositoryImpl) withTeam(ctx context.Context, criteria *types.Criteria) ([]*model.Member, error) {
	members, err := r.selectBy(ctx, r.db, criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation("Team")
	})
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, members), nil
}

func (r *memberRepositoryImpl) FindMemberFetchJoin(ctx context.Context) ([]*model.Member, error) {
	return r.withTeam(ctx, nil)
}

func (r *memberRepositoryImpl) FindAllWithTeam(ctx context.Context) ([]*model.Member, error) {
	return r.withTeam(ctx, nil)
}

func (r *memberRepositoryImpl) FindEntityGraphByUserName(ctx context.Context, userName string) ([]*model.Member, error) {
	criteria, err := r.derive("FindEntityGraphByUserName", SubjectFind, []interface{}{userName})
	if err != nil {
		return nil, err
	}
	return r.withTeam(ctx, criteria)
}

// LoadTeams fills Member.Team for members in one query over their team ids.
func (r *memberRepositoryImpl) LoadTeams(ctx context.Context, members []*model.Member) error {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m == nil || m.TeamID == nil {
			continue
		}
		if _, ok := seen[*m.TeamID]; !ok {
			seen[*m.TeamID] = struct{}{}
			ids = append(ids, *m.TeamID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var teams []*model.Team
	err := r.db.NewSelect().
		Model(&teams).
		Where("?TableAlias.team_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}
	byID := make(map[int64]*model.Team, len(teams))
	for _, t := range r.teams.manageAll(ctx, teams) {
		byID[t.ID] = t
	}
	for _, m := range members {
		if m != nil && m.TeamID != nil {
			m.Team = byID[*m.TeamID]
		}
	}
	return nil
}

func (r *memberRepositoryImpl) FindByTeamID(ctx context.Context, teamID int64) ([]*model.Member, error) {
	return r.FindByMethod(ctx, "FindByTeamID", teamID)
}

// FindReadOnlyByUserName returns an unmanaged instance that Save rejects.
func (r *memberRepositoryImpl) FindReadOnlyByUserName(ctx context.Context, userName string) (*model.Member, error) {
	member, err := r.uniqueBy(ctx, types.Where(types.Eq("UserName", userName)))
	if err != nil || member == nil {
		return nil, err
	}
	member.SetState(types.StateReadOnly)
	return member, nil
}

// FindLockByUserName selects with a write lock held until tx ends. SQLite
// locks the whole database for writers and has no FOR UPDATE clause.
func (r *memberRepositoryImpl) FindLockByUserName(ctx context.Context, tx *bun.Tx, userName string) ([]*model.Member, error) {
	if tx == nil {
		return nil, ErrTransactionRequired
	}
	criteria, err := r.derive("FindLockByUserName", SubjectFind, []interface{}{userName})
	if err != nil {
		return nil, err
	}
	members, err := r.selectBy(ctx, tx, criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
		if r.db.Dialect().Name() == dialect.SQLite {
			return q
		}
		return q.For(types.LockPessimisticWrite.Desc())
	})
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, members), nil
}

type memberRepositoryCustomImpl struct {
	db *bun.DB
}

func (c *memberRepositoryCustomImpl) FindMemberCustom(ctx context.Context) ([]*model.Member, error) {
	var members []*model.Member
	err := c.db.NewSelect().Model(&members).OrderExpr("?TableAlias.member_id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		m.SetState(types.StatePersisted)
	}
	return members, nil
}
