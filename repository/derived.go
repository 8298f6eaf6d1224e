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
	"strconv"
	"strings"
	"unicode"

	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun/schema"
)

// Subject is the leading verb of a query method name.
type Subject int

const (
	SubjectFind Subject = iota
	SubjectCount
	SubjectExists
	SubjectDelete
)

func (s Subject) String() string {
	switch s {
	case SubjectCount:
		return "count"
	case SubjectExists:
		return "exists"
	case SubjectDelete:
		return "delete"
	}
	return "find"
}

var subjectPrefixes = []struct {
	prefix  string
	subject Subject
}{
	{"find", SubjectFind},
	{"read", SubjectFind},
	{"get", SubjectFind},
	{"query", SubjectFind},
	{"count", SubjectCount},
	{"exists", SubjectExists},
	{"delete", SubjectDelete},
}

// keywords are tried longest first so GreaterThanEqual wins over GreaterThan.
var keywords = []struct {
	suffix string
	op     types.Operator
}{
	{"GreaterThanEqual", types.OpGte},
	{"LessThanEqual", types.OpLte},
	{"GreaterThan", types.OpGt},
	{"IsNotNull", types.OpIsNotNull},
	{"LessThan", types.OpLt},
	{"NotLike", types.OpNotLike},
	{"NotNull", types.OpIsNotNull},
	{"Equals", types.OpEq},
	{"IsNull", types.OpIsNull},
	{"NotIn", types.OpNotIn},
	{"Like", types.OpLike},
	{"Null", types.OpIsNull},
	{"Not", types.OpNotEq},
	{"In", types.OpIn},
	{"Is", types.OpEq},
}

// Predicate is one property/operator pair of a parsed method. Raw keeps the
// text before keyword stripping, used when the stripped name is unknown.
type Predicate struct {
	Property string
	Raw      string
	Op       types.Operator
}

// ParsedMethod is the structural form of a query method name such as
// FindTop3ByUserNameAndAgeGreaterThanOrderByAgeDesc.
type ParsedMethod struct {
	Name       string
	Subject    Subject
	Limit      int
	Predicates []Predicate
	Orders     []types.Order
}

// ParseMethod parses a query method name. Names may start upper or lower case.
func ParseMethod(name string) (*ParsedMethod, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidMethod)
	}
	lowered := lowerFirst(name)
	pm := &ParsedMethod{Name: name}

	rest, ok := "", false
	for _, sp := range subjectPrefixes {
		if strings.HasPrefix(lowered, sp.prefix) {
			tail := lowered[len(sp.prefix):]
			if tail == "" || unicode.IsUpper(rune(tail[0])) {
				pm.Subject, rest, ok = sp.subject, tail, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s has no subject", ErrInvalidMethod, name)
	}

	by := indexWord(rest, "By")
	if by < 0 {
		return nil, fmt.Errorf("%w: %s has no By clause", ErrInvalidMethod, name)
	}
	limit, err := parseLimit(rest[:by])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMethod, name, err)
	}
	pm.Limit = limit

	predicates := rest[by+len("By"):]
	if i := lastIndexWord(predicates, "OrderBy"); i >= 0 {
		orders, err := parseOrders(predicates[i+len("OrderBy"):])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMethod, name, err)
		}
		pm.Orders = orders
		predicates = predicates[:i]
	}
	if predicates == "" {
		return pm, nil
	}
	if indexWord(predicates, "Or") >= 0 {
		return nil, fmt.Errorf("%w: Or in %s", ErrUnsupportedKeyword, name)
	}
	for _, part := range splitWord(predicates, "And") {
		if part == "" {
			return nil, fmt.Errorf("%w: %s has an empty predicate", ErrInvalidMethod, name)
		}
		pm.Predicates = append(pm.Predicates, parsePredicate(part))
	}
	return pm, nil
}

// Arity is the number of arguments the method binds.
func (pm *ParsedMethod) Arity() int {
	n := 0
	for _, p := range pm.Predicates {
		n += p.Op.Arity()
	}
	return n
}

// Resolve checks every property against table. A stripped property that is
// unknown falls back to an equality on the raw text when that is a field.
func (pm *ParsedMethod) Resolve(table *schema.Table) (*ParsedMethod, error) {
	resolved := *pm
	resolved.Predicates = make([]Predicate, len(pm.Predicates))
	for i, p := range pm.Predicates {
		if f := lookupField(table, p.Property); f != nil {
			p.Property = f.GoName
		} else if f := lookupField(table, p.Raw); f != nil {
			p.Property, p.Op = f.GoName, types.OpEq
		} else {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnknownProperty, p.Property, pm.Name)
		}
		resolved.Predicates[i] = p
	}
	resolved.Orders = make([]types.Order, len(pm.Orders))
	for i, o := range pm.Orders {
		f := lookupField(table, o.Field)
		if f == nil {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnknownProperty, o.Field, pm.Name)
		}
		resolved.Orders[i] = types.Order{Field: f.GoName, Desc: o.Desc}
	}
	return &resolved, nil
}

// Bind builds the criteria, consuming args in predicate order.
func (pm *ParsedMethod) Bind(args ...interface{}) (*types.Criteria, error) {
	if len(args) != pm.Arity() {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrArgumentCount, pm.Name, pm.Arity(), len(args))
	}
	c := &types.Criteria{Limit: pm.Limit}
	i := 0
	for _, p := range pm.Predicates {
		cond := types.Condition{Field: p.Property, Op: p.Op}
		if p.Op.Arity() > 0 {
			cond.Value = args[i]
			i++
		}
		c.Conditions = append(c.Conditions, cond)
	}
	c.Orders = append(c.Orders, pm.Orders...)
	return c, nil
}

func parsePredicate(part string) Predicate {
	for _, kw := range keywords {
		if len(part) > len(kw.suffix) && strings.HasSuffix(part, kw.suffix) {
			return Predicate{Property: strings.TrimSuffix(part, kw.suffix), Raw: part, Op: kw.op}
		}
	}
	return Predicate{Property: part, Raw: part, Op: types.OpEq}
}

// parseLimit reads First, FirstN or TopN from the text between subject and By.
func parseLimit(text string) (int, error) {
	for _, kw := range []string{"First", "Top"} {
		if !strings.HasPrefix(text, kw) {
			continue
		}
		digits := text[len(kw):]
		end := 0
		for end < len(digits) && unicode.IsDigit(rune(digits[end])) {
			end++
		}
		if end == 0 {
			if kw == "Top" {
				return 0, fmt.Errorf("Top requires a number")
			}
			return 1, nil
		}
		n, err := strconv.Atoi(digits[:end])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid limit %q", digits[:end])
		}
		return n, nil
	}
	return 0, nil
}

func parseOrders(text string) ([]types.Order, error) {
	var orders []types.Order
	for text != "" {
		asc, desc := indexWord(text, "Asc"), indexWord(text, "Desc")
		i, size, isDesc := asc, len("Asc"), false
		if desc >= 0 && (asc < 0 || desc < asc) {
			i, size, isDesc = desc, len("Desc"), true
		}
		if i <= 0 {
			if i == 0 {
				return nil, fmt.Errorf("order direction without property")
			}
			orders = append(orders, types.Order{Field: text})
			break
		}
		orders = append(orders, types.Order{Field: text[:i], Desc: isDesc})
		text = text[i+size:]
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("OrderBy without property")
	}
	return orders, nil
}

// indexWord finds word where it starts a camel-case token: the next rune is
// upper case or the string ends.
func indexWord(s, word string) int {
	for from := 0; from <= len(s)-len(word); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		if end == len(s) || unicode.IsUpper(rune(s[end])) {
			return i
		}
		from = i + 1
	}
	return -1
}

func lastIndexWord(s, word string) int {
	last := -1
	for from := 0; from < len(s); {
		i := indexWord(s[from:], word)
		if i < 0 {
			break
		}
		last = from + i
		from = last + 1
	}
	return last
}

func splitWord(s, word string) []string {
	var parts []string
	for {
		i := indexWord(s, word)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+len(word):]
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// lookupField matches a Go field name or column name, case-insensitively.
func lookupField(table *schema.Table, name string) *schema.Field {
	if name == "" {
		return nil
	}
	for _, f := range table.Fields {
		if f.GoName == name || f.Name == name {
			return f
		}
	}
	for _, f := range table.Fields {
		if strings.EqualFold(f.GoName, name) || strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}
