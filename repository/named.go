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
	"strings"
	"sync"
	"unicode"
)

// NamedQuery is a WHERE clause with :name parameters, registered once and
// referenced by name.
type NamedQuery struct {
	Name   string
	Query  string
	Where  string
	Params []string
}

var (
	namedQueriesMu sync.RWMutex
	namedQueries   = map[string]*NamedQuery{}
)

// RegisterNamedQuery parses query and stores it under name. Malformed
// queries fail at registration rather than at execution.
func RegisterNamedQuery(name, query string) error {
	nq, err := ParseNamedQuery(name, query)
	if err != nil {
		return err
	}
	namedQueriesMu.Lock()
	defer namedQueriesMu.Unlock()
	if _, exists := namedQueries[name]; exists {
		return fmt.Errorf("named query %s already registered", name)
	}
	namedQueries[name] = nq
	return nil
}

// MustRegisterNamedQuery is RegisterNamedQuery for package initialization.
func MustRegisterNamedQuery(name, query string) {
	if err := RegisterNamedQuery(name, query); err != nil {
		panic(err)
	}
}

// LookupNamedQuery returns the query registered under name.
func LookupNamedQuery(name string) (*NamedQuery, error) {
	namedQueriesMu.RLock()
	defer namedQueriesMu.RUnlock()
	nq, ok := namedQueries[name]
	if !ok {
		return nil, fmt.Errorf("%w: named query %s", ErrInvalidMethod, name)
	}
	return nq, nil
}

// ParseNamedQuery rewrites :name parameters into Bun placeholders.
func ParseNamedQuery(name, query string) (*NamedQuery, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: named query needs a name and a query", ErrInvalidMethod)
	}
	nq := &NamedQuery{Name: name, Query: query}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != ':' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && (unicode.IsLetter(rune(query[j])) || unicode.IsDigit(rune(query[j])) || query[j] == '_') {
			j++
		}
		if j == i+1 {
			return nil, fmt.Errorf("%w: %s: dangling ':' at %d", ErrInvalidMethod, name, i)
		}
		nq.Params = append(nq.Params, query[i+1:j])
		b.WriteByte('?')
		i = j - 1
	}
	nq.Where = b.String()
	return nq, nil
}

// Args orders params by the query's parameter list.
func (nq *NamedQuery) Args(params map[string]interface{}) ([]interface{}, error) {
	args := make([]interface{}, 0, len(nq.Params))
	for _, p := range nq.Params {
		v, ok := params[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s is missing :%s", ErrArgumentCount, nq.Name, p)
		}
		args = append(args, v)
	}
	return args, nil
}
