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

package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

var memberTeamFK = ForeignKeyConstraint{
	Table:           "member",
	Column:          "team_id",
	ReferenceTable:  "team",
	ReferenceColumn: "team_id",
	OnDelete:        "SET NULL",
}

func TestForeignKeyConstraint_GenerateSQL(t *testing.T) {
	fk := memberTeamFK
	assert.Equal(t, "fk_member_team_id", fk.GenerateConstraintName())
	assert.Equal(t,
		"ALTER TABLE member ADD CONSTRAINT fk_member_team_id FOREIGN KEY (team_id) REFERENCES team(team_id) ON DELETE SET NULL",
		fk.GenerateSQL())

	fk.ConstraintName = "fk_custom"
	fk.OnUpdate = "CASCADE"
	assert.Equal(t,
		"ALTER TABLE member ADD CONSTRAINT fk_custom FOREIGN KEY (team_id) REFERENCES team(team_id) ON DELETE SET NULL ON UPDATE CASCADE",
		fk.GenerateSQL())
}

func TestForeignKeyManager_Validate(t *testing.T) {
	fkm := NewForeignKeyManager(nil, []ForeignKeyConstraint{
		memberTeamFK,
		{Table: "member", Column: "team_id", ReferenceTable: "team", ReferenceColumn: "team_id", OnDelete: "EXPLODE"},
		{Table: "item"},
	})
	errs := fkm.ValidateConstraints()
	assert.Len(t, errs, 4)
	assert.Len(t, fkm.GetConstraintsByTable("MEMBER"), 2)
	assert.Empty(t, fkm.GetConstraintsByTable("team"))
}

func TestForeignKeyManager_AddAllForeignKeys(t *testing.T) {
	ctx := context.Background()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(memberTeamFK.GenerateSQL())).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewForeignKeyManager(nil, []ForeignKeyConstraint{memberTeamFK}).AddAllForeignKeys(ctx, db))
	assert.NoError(t, mock.ExpectationsWereMet())

	invalid := NewForeignKeyManager(nil, []ForeignKeyConstraint{{Table: "member"}})
	assert.ErrorContains(t, invalid.AddAllForeignKeys(ctx, db), "validation failed")
}
