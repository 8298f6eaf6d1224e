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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = prev })
}

func TestBaseTimeEntity_Hook(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	fixedNow(t, created)

	m := NewMember("member1")
	require.NoError(t, m.BeforeAppendModel(ctx, (*bun.InsertQuery)(nil)))
	assert.Equal(t, created, m.CreateTime)
	assert.Equal(t, created, m.UpdateTime)

	updated := created.Add(time.Hour)
	fixedNow(t, updated)
	require.NoError(t, m.BeforeAppendModel(ctx, (*bun.UpdateQuery)(nil)))
	assert.Equal(t, created, m.CreateTime)
	assert.Equal(t, updated, m.UpdateTime)

	require.NoError(t, m.BeforeAppendModel(ctx, (*bun.SelectQuery)(nil)))
	assert.Equal(t, updated, m.UpdateTime)
	assert.Equal(t, []string{"create_time"}, m.ImmutableColumns())
}

func TestItem_IsNew(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	item := NewItem("A")
	assert.True(t, item.IsNew())
	require.NoError(t, item.BeforeAppendModel(context.Background(), (*bun.UpdateQuery)(nil)))
	assert.True(t, item.IsNew())

	require.NoError(t, item.BeforeAppendModel(context.Background(), (*bun.InsertQuery)(nil)))
	assert.False(t, item.IsNew())
	assert.Equal(t, now, item.CreatedDate)
	assert.Equal(t, "A", item.EntityID())
}

func TestEntity_State(t *testing.T) {
	var m Member
	assert.Equal(t, types.StateTransient, m.State())
	m.SetState(types.StatePersisted)
	assert.Equal(t, types.StatePersisted, m.State())
	m.SetState(types.State(42))
	assert.Equal(t, types.StateTransient, m.State())
}

func TestMember_ChangeTeam(t *testing.T) {
	teamA := &Team{ID: 1, Name: "teamA"}
	teamB := &Team{ID: 2, Name: "teamB"}

	m := NewMemberWithTeam("member1", 10, teamA)
	require.NotNil(t, m.TeamID)
	assert.Equal(t, int64(1), *m.TeamID)
	assert.Same(t, teamA, m.Team)

	m.ChangeTeam(teamB)
	assert.Equal(t, int64(2), *m.TeamID)
	assert.Empty(t, teamA.Members)
	assert.Empty(t, teamB.Members)

	m.ChangeTeam(nil)
	assert.Nil(t, m.TeamID)
	assert.Nil(t, m.Team)
	assert.Nil(t, NewMemberWithTeam("member2", 20, nil).TeamID)
}

func TestMember_HookResolvesTeamID(t *testing.T) {
	ctx := context.Background()
	fixedNow(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))

	team := NewTeam("teamA")
	m := NewMemberWithTeam("member1", 10, team)
	assert.Same(t, team, m.Team)
	assert.Nil(t, m.TeamID)

	require.NoError(t, m.BeforeAppendModel(ctx, (*bun.InsertQuery)(nil)))
	assert.Nil(t, m.TeamID)
	assert.False(t, m.CreateTime.IsZero())

	team.ID = 7
	require.NoError(t, m.BeforeAppendModel(ctx, (*bun.UpdateQuery)(nil)))
	require.NotNil(t, m.TeamID)
	assert.Equal(t, int64(7), *m.TeamID)
}

func TestNewMemberDto(t *testing.T) {
	m := &Member{ID: 3, UserName: "member1"}
	assert.Equal(t, &MemberDto{ID: 3, UserName: "member1"}, NewMemberDto(m))

	m.Team = &Team{Name: "teamA"}
	assert.Equal(t, "teamA", NewMemberDto(m).TeamName)
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "Member(id=1, userName=member1, age=10)", (&Member{ID: 1, UserName: "member1", Age: 10}).String())
	assert.Equal(t, "Team(id=2, name=teamA)", (&Team{ID: 2, Name: "teamA"}).String())
}

func TestRegisteredModels(t *testing.T) {
	instances := database.RegisteredModelInstances()
	require.GreaterOrEqual(t, len(instances), 3)
	assert.IsType(t, (*Team)(nil), instances[0])
	assert.IsType(t, (*Member)(nil), instances[1])
	assert.IsType(t, (*Item)(nil), instances[2])

	fks := database.DefaultRegistry().ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, "SET NULL", fks[0].OnDelete)
}
