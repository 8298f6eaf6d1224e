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

package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/model"
	"github.com/tomoncle/datastudy/repository"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// newTestDB opens a private in-memory SQLite database with the registered
// tables created, and a QueryCounter attached.
func newTestDB(t *testing.T) (*bun.DB, *database.QueryCounter) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.RegisterModel(database.RegisteredModelInstances()...)
	t.Cleanup(func() { _ = db.Close() })

	err = database.NewMigrationManager(db, nil, database.DataMigrateConfig{EnableForeignKey: true}).RunMigrations(context.Background())
	require.NoError(t, err)

	counter := database.NewQueryCounter()
	db.AddQueryHook(counter)
	return db, counter
}

func saveMembers(t *testing.T, repo repository.MemberRepository, members ...*model.Member) []*model.Member {
	t.Helper()
	saved, err := repo.SaveAll(context.Background(), members...)
	require.NoError(t, err)
	return saved
}
