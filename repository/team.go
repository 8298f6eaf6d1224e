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

	"github.com/tomoncle/datastudy/model"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

type TeamRepository interface {
	Repository[model.Team]

	// FindWithMembers loads the team and its members ordered by id.
	FindWithMembers(ctx context.Context, id int64) (*model.Team, bool, error)
}

type teamRepositoryImpl struct {
	*baseRepositoryImpl[model.Team]
}

func NewTeamRepository(db *bun.DB) TeamRepository {
	return &teamRepositoryImpl{baseRepositoryImpl: newBaseRepository[model.Team](db)}
}

func (r *teamRepositoryImpl) FindWithMembers(ctx context.Context, id int64) (*model.Team, bool, error) {
	team := new(model.Team)
	err := whereID(r.db.NewSelect().Model(team), r.table, true, id).
		Relation("Members", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.member_id ASC")
		}).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	for _, m := range team.Members {
		m.SetState(types.StatePersisted)
	}
	return r.manage(ctx, team), true, nil
}
