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

package types

import "strings"

// Operator is the comparison applied by a Condition.
type Operator int

const (
	OpEq Operator = iota
	OpNotEq
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
	OpLike
	OpNotLike
	OpIsNull
	OpIsNotNull
)

var operatorSQL = map[Operator]string{
	OpEq:        "=",
	OpNotEq:     "<>",
	OpGt:        ">",
	OpGte:       ">=",
	OpLt:        "<",
	OpLte:       "<=",
	OpIn:        "IN",
	OpNotIn:     "NOT IN",
	OpLike:      "LIKE",
	OpNotLike:   "NOT LIKE",
	OpIsNull:    "IS NULL",
	OpIsNotNull: "IS NOT NULL",
}

// SQL returns the SQL operator text.
func (o Operator) SQL() string { return operatorSQL[o] }

// Arity is the number of bound values the operator consumes.
func (o Operator) Arity() int {
	if o == OpIsNull || o == OpIsNotNull {
		return 0
	}
	return 1
}

// Condition is a single field/operator/value predicate. Field may be the Go
// field name ("UserName") or the column name ("user_name").
type Condition struct {
	Field string
	Op    Operator
	Value interface{}
}

// Order sorts by Field, descending when Desc is set.
type Order struct {
	Field string
	Desc  bool
}

// Criteria is a conjunction of conditions with optional ordering and limit.
type Criteria struct {
	Conditions []Condition
	Orders     []Order
	Limit      int
}

// Where starts a Criteria with the given conditions.
func Where(conds ...Condition) *Criteria {
	return &Criteria{Conditions: conds}
}

// And appends conditions.
func (c *Criteria) And(conds ...Condition) *Criteria {
	c.Conditions = append(c.Conditions, conds...)
	return c
}

// OrderBy appends an ascending or descending order.
func (c *Criteria) OrderBy(field string, desc bool) *Criteria {
	c.Orders = append(c.Orders, Order{Field: field, Desc: desc})
	return c
}

// Top limits the result to n rows.
func (c *Criteria) Top(n int) *Criteria {
	c.Limit = n
	return c
}

func (c *Criteria) String() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.Conditions))
	for _, cond := range c.Conditions {
		if cond.Op.Arity() == 0 {
			parts = append(parts, cond.Field+" "+cond.Op.SQL())
			continue
		}
		parts = append(parts, cond.Field+" "+cond.Op.SQL()+" ?")
	}
	return strings.Join(parts, " AND ")
}

func Eq(field string, v interface{}) Condition    { return Condition{field, OpEq, v} }
func NotEq(field string, v interface{}) Condition { return Condition{field, OpNotEq, v} }
func Gt(field string, v interface{}) Condition    { return Condition{field, OpGt, v} }
func Gte(field string, v interface{}) Condition   { return Condition{field, OpGte, v} }
func Lt(field string, v interface{}) Condition    { return Condition{field, OpLt, v} }
func Lte(field string, v interface{}) Condition   { return Condition{field, OpLte, v} }
func In(field string, v interface{}) Condition    { return Condition{field, OpIn, v} }
func NotIn(field string, v interface{}) Condition { return Condition{field, OpNotIn, v} }
func Like(field string, v interface{}) Condition  { return Condition{field, OpLike, v} }
func IsNull(field string) Condition               { return Condition{Field: field, Op: OpIsNull} }
func IsNotNull(field string) Condition            { return Condition{Field: field, Op: OpIsNotNull} }
