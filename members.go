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

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/model"
	"github.com/tomoncle/datastudy/repository"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

// Repositories groups the repositories sharing one database handle.
type Repositories struct {
	Members repository.MemberRepository
	Teams   repository.TeamRepository
	Items   repository.ItemRepository
}

func NewRepositories(db *bun.DB) *Repositories {
	return &Repositories{
		Members: repository.NewMemberRepository(db),
		Teams:   repository.NewTeamRepository(db),
		Items:   repository.NewItemRepository(db),
	}
}

// DefaultRepositories binds repositories to the global connection.
func DefaultRepositories() (*Repositories, error) {
	db := database.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return NewRepositories(db), nil
}

// SeedMembers returns user0..user{n-1} with ages 0..n-1.
func SeedMembers(n int) []*model.Member {
	members := make([]*model.Member, 0, n)
	for i := 0; i < n; i++ {
		members = append(members, model.NewMemberWithAge(fmt.Sprintf("user%d", i), i))
	}
	return members
}

// RegisterMemberSeeder makes the seed migration insert SeedMembers(n).
func RegisterMemberSeeder(n int) {
	database.RegisterSeeder("members", func(ctx context.Context, db bun.IDB) error {
		if n <= 0 {
			return nil
		}
		members := SeedMembers(n)
		_, err := db.NewInsert().Model(&members).Exec(ctx)
		return err
	})
}

// ListMembers pages members sorted by user name descending and maps them to
// DTOs.
func (r *Repositories) ListMembers(ctx context.Context, page, size int) (*types.Pagination[model.MemberDto], error) {
	result, err := r.Members.Page(ctx, types.NewPageRequestWithOrders(page, size, "user_name DESC"))
	if err != nil {
		return nil, err
	}
	return types.MapPage(result, model.NewMemberDto), nil
}
