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
	"fmt"
	"reflect"

	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type wherer[Q any] interface {
	Where(query string, args ...interface{}) Q
}

// column returns the placeholder for a column: alias-qualified in selects,
// bare in updates and deletes where not every dialect accepts an alias.
func column(qualified bool) string {
	if qualified {
		return "?TableAlias.?"
	}
	return "?"
}

func whereID[Q wherer[Q]](q Q, table *schema.Table, qualified bool, id any) Q {
	return q.Where(column(qualified)+" = ?", table.PKs[0].SQLName, id)
}

func applyConditions[Q wherer[Q]](q Q, table *schema.Table, qualified bool, conds []types.Condition) (Q, error) {
	col := column(qualified)
	for _, cond := range conds {
		f := lookupField(table, cond.Field)
		if f == nil {
			return q, fmt.Errorf("%w: %s", ErrUnknownProperty, cond.Field)
		}
		switch cond.Op {
		case types.OpIsNull, types.OpIsNotNull:
			q = q.Where(col+" "+cond.Op.SQL(), f.SQLName)
		case types.OpIn, types.OpNotIn:
			values := asSlice(cond.Value)
			if reflect.ValueOf(values).Len() == 0 {
				if cond.Op == types.OpIn {
					q = q.Where("1 = 0")
				}
				continue
			}
			q = q.Where(col+" "+cond.Op.SQL()+" (?)", f.SQLName, bun.In(values))
		default:
			if cond.Value == nil && (cond.Op == types.OpEq || cond.Op == types.OpNotEq) {
				op := types.OpIsNull
				if cond.Op == types.OpNotEq {
					op = types.OpIsNotNull
				}
				q = q.Where(col+" "+op.SQL(), f.SQLName)
				continue
			}
			q = q.Where(col+" "+cond.Op.SQL()+" ?", f.SQLName, cond.Value)
		}
	}
	return q, nil
}

func applyOrders(q *bun.SelectQuery, table *schema.Table, orders []types.Order) (*bun.SelectQuery, error) {
	for _, o := range orders {
		f := lookupField(table, o.Field)
		if f == nil {
			return q, fmt.Errorf("%w: %s", ErrUnknownProperty, o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		q = q.OrderExpr("?TableAlias.? "+dir, f.SQLName)
	}
	return q, nil
}

func orderByPK(q *bun.SelectQuery, table *schema.Table) *bun.SelectQuery {
	return q.OrderExpr("?TableAlias.? ASC", table.PKs[0].SQLName)
}

// asSlice returns v when it is a slice or array, otherwise a one-element slice.
func asSlice(v interface{}) interface{} {
	if v == nil {
		return []interface{}{}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return v
	}
	return []interface{}{v}
}
