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

package datastudy_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datastudy"
	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/model"
	"github.com/tomoncle/datastudy/repository"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

func newDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, memoryDSN())
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.RegisterModel(database.RegisteredModelInstances()...)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrationManager(db, nil, database.DataMigrateConfig{}).RunMigrations(context.Background()))
	return db
}

func TestInitDBWithSeed(t *testing.T) {
	ctx := context.Background()
	datastudy.RegisterMemberSeeder(12)

	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.DBName = memoryDSN()
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.DataMigrateConfig.EnableForeignKey = true
	cfg.DataMigrateConfig.EnableSeed = true

	db, err := database.InitDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })
	assert.Same(t, db, database.GetDB())
	assert.True(t, database.GetHealthStatus(ctx).Healthy)

	repos, err := datastudy.DefaultRepositories()
	require.NoError(t, err)

	count, err := repos.Members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, count)

	page, err := repos.ListMembers(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages())
	require.Len(t, page.Items, 5)
	assert.Equal(t, "user9", page.Items[0].UserName)
	assert.Equal(t, "user5", page.Items[4].UserName)

	n, err := repos.Members.BulkAgePlus(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats := database.GetDatabaseStats()
	assert.Equal(t, 1, stats.MaxOpenConns)
	assert.GreaterOrEqual(t, stats.OpenConns, 1)

	require.NoError(t, database.CloseDB())
	assert.Equal(t, &database.DBStats{}, database.GetDatabaseStats())
	assert.False(t, database.GetHealthStatus(ctx).Healthy)
}

func TestSeedMembers(t *testing.T) {
	members := datastudy.SeedMembers(3)
	require.Len(t, members, 3)
	assert.Equal(t, "user2", members[2].UserName)
	assert.Equal(t, 2, members[2].Age)
	assert.Empty(t, datastudy.SeedMembers(0))
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := datastudy.NewServiceWithDB[model.Team](newDB(t))

	teamA, teamB := model.NewTeam("teamA"), model.NewTeam("teamB")
	require.NoError(t, svc.Save(ctx, teamA, teamB))

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := svc.Get(ctx, teamA.ID)
	require.NoError(t, err)
	assert.Equal(t, "teamA", got.Name)

	teams, err := svc.List(ctx, types.NewQueryFilter("name = ?", "teamB"))
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, teamB.ID, teams[0].ID)

	page, err := svc.Page(ctx, types.NewDefaultPageRequest(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "teamA", page.Items[0].Name)

	var names []string
	require.NoError(t, svc.SelectBuilder().Model((*model.Team)(nil)).Column("name").Order("name DESC").Scan(ctx, &names))
	assert.Equal(t, []string{"teamB", "teamA"}, names)

	require.NoError(t, svc.Delete(ctx, teamA.ID))
	_, err = svc.Get(ctx, teamA.ID)
	assert.ErrorIs(t, err, repository.ErrEntityNotFound)

	_, found, err := svc.Find(ctx, teamB.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestServiceWithoutDB(t *testing.T) {
	svc := datastudy.NewServiceWithDB[model.Team](nil)
	_, err := svc.All(context.Background())
	assert.Error(t, err)
	assert.Nil(t, svc.SelectBuilder())
}
