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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datastudy/model"
)

func TestPersistenceContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx, pc := NewContext(context.Background())
	bound, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, pc, bound)

	first := &model.Member{ID: 1, UserName: "first"}
	pc.Put("member", int64(1), first)
	assert.True(t, pc.Contains("member", 1))
	assert.False(t, pc.Contains("team", 1))

	other := &model.Member{ID: 1, UserName: "other"}
	assert.Same(t, first, pc.Attach("member", int64(1), other))

	pc.Evict("member", 1)
	assert.Equal(t, 0, pc.Len())
	assert.Same(t, other, pc.Attach("member", int64(1), other))

	pc.Put("team", int64(1), &model.Team{ID: 1})
	assert.Equal(t, 2, pc.Len())
	pc.Clear()
	assert.Equal(t, 0, pc.Len())
}
