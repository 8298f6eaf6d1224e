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
	"fmt"

	"github.com/uptrace/bun"
)

const NamedQueryFindByUsername = "Member.findByUsername"

type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`
	Entity
	BaseTimeEntity

	ID       int64  `bun:"member_id,pk,autoincrement" json:"id"`
	UserName string `bun:"user_name,notnull" json:"user_name"`
	Age      int    `bun:"age,notnull" json:"age"`
	TeamID   *int64 `bun:"team_id" json:"team_id,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=team_id" json:"team,omitempty"`
}

func NewMember(userName string) *Member {
	return &Member{UserName: userName}
}

func NewMemberWithAge(userName string, age int) *Member {
	return &Member{UserName: userName, Age: age}
}

// NewMemberWithTeam creates a member that belongs to team when team is not nil.
func NewMemberWithTeam(userName string, age int, team *Team) *Member {
	m := NewMemberWithAge(userName, age)
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam points the member at team. Team.Members is not touched; it is
// only filled by a query. A team that is not saved yet leaves TeamID nil
// until the member is written, when the hook below copies the team's ID.
func (m *Member) ChangeTeam(team *Team) {
	m.Team = team
	if team == nil || team.ID == 0 {
		m.TeamID = nil
		return
	}
	id := team.ID
	m.TeamID = &id
}

var _ bun.BeforeAppendModelHook = (*Member)(nil)

// BeforeAppendModel resolves team_id from Team before insert and update.
func (m *Member) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if m.Team != nil && m.Team.ID != 0 {
		id := m.Team.ID
		m.TeamID = &id
	}
	return m.BaseTimeEntity.BeforeAppendModel(ctx, query)
}

func (m *Member) EntityID() any {
	return m.ID
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, userName=%s, age=%d)", m.ID, m.UserName, m.Age)
}
