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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datastudy/model"
	"github.com/tomoncle/datastudy/repository"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

func TestMemberRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)

	member := model.NewMember("memberA")
	assert.Equal(t, types.StateTransient, member.State())

	saved, err := repo.Save(ctx, member)
	require.NoError(t, err)
	assert.Same(t, member, saved)
	assert.NotZero(t, member.ID)
	assert.Equal(t, types.StatePersisted, member.State())
	assert.False(t, member.CreateTime.IsZero())
	assert.Equal(t, member.CreateTime, member.UpdateTime)

	found, ok, err := repo.FindByID(ctx, member.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, member.ID, found.ID)
	assert.Equal(t, "memberA", found.UserName)
	assert.Equal(t, types.StatePersisted, found.State())

	_, ok, err = repo.FindByID(ctx, member.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetOne(ctx, member.ID+100)
	assert.ErrorIs(t, err, repository.ErrEntityNotFound)
}

func TestMemberRepository_UpdateKeepsCreateTime(t *testing.T) {
	ctx := context.Background()
	db, counter := newTestDB(t)
	repo := repository.NewMemberRepository(db)

	member := model.NewMemberWithAge("memberA", 10)
	_, err := repo.Save(ctx, member)
	require.NoError(t, err)
	created := member.CreateTime

	counter.Reset()
	member.Age = 11
	_, err = repo.Save(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.Count("UPDATE"))
	assert.Equal(t, 0, counter.Count("INSERT"))
	assert.Equal(t, created, member.CreateTime)
	assert.False(t, member.UpdateTime.Before(created))

	found, err := repo.GetOne(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, found.Age)
	assert.WithinDuration(t, created, found.CreateTime, time.Second)
}

func TestMemberRepository_CountAndDelete(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)

	m1, m2 := model.NewMember("member1"), model.NewMember("member2")
	saveMembers(t, repo, m1, m2)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.Delete(ctx, m1))
	assert.Equal(t, types.StateRemoved, m1.State())
	require.NoError(t, repo.DeleteByID(ctx, m2.ID))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	t.Run("removed entity is inserted again", func(t *testing.T) {
		_, err := repo.Save(ctx, m1)
		require.NoError(t, err)
		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestMemberRepository_SaveAllRollback(t *testing.T) {
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	saveMembers(t, repo, model.NewMemberWithAge("member1", 10))

	ctx, pc := repository.NewContext(context.Background())
	readOnly, err := repo.FindReadOnlyByUserName(ctx, "member1")
	require.NoError(t, err)
	require.NotNil(t, readOnly)

	fresh := model.NewMemberWithAge("fresh", 20)
	_, err = repo.SaveAll(ctx, fresh, readOnly)
	require.ErrorIs(t, err, repository.ErrReadOnlyEntity)
	assert.Zero(t, fresh.ID)
	assert.Equal(t, types.StateTransient, fresh.State())
	assert.True(t, fresh.CreateTime.IsZero())
	assert.Equal(t, types.StateReadOnly, readOnly.State())
	assert.Zero(t, pc.Len())

	_, err = repo.Save(ctx, fresh)
	require.NoError(t, err)
	assert.NotZero(t, fresh.ID)
	count, err := repo.CountByMethod(ctx, "CountByUserName", "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemberRepository_UpdateMissingRow(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	member := saveMembers(t, repo, model.NewMemberWithAge("member1", 10))[0]
	require.NoError(t, repo.DeleteByID(ctx, member.ID))

	member.Age = 11
	_, err := repo.Save(ctx, member)
	assert.ErrorIs(t, err, repository.ErrEntityNotFound)
	assert.ErrorIs(t, repo.Update(ctx, member), repository.ErrEntityNotFound)
}

func TestMemberRepository_DerivedQueries(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	saveMembers(t, repo,
		model.NewMemberWithAge("aaa", 10),
		model.NewMemberWithAge("aaa", 30),
		model.NewMemberWithAge("bbb", 20),
		model.NewMemberWithAge("ccc", 40),
		model.NewMemberWithAge("ddd", 50),
	)

	t.Run("FindByUserNameAndAgeGreaterThan", func(t *testing.T) {
		result, err := repo.FindByUserNameAndAgeGreaterThan(ctx, "aaa", 25)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, 30, result[0].Age)

		result, err = repo.FindByUserNameAndAgeGreaterThan(ctx, "aaa", 30)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("FindByNames", func(t *testing.T) {
		result, err := repo.FindByNames(ctx, []string{"aaa", "bbb"})
		require.NoError(t, err)
		assert.Len(t, result, 3)

		result, err = repo.FindByNames(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("FindTop3HelloBy", func(t *testing.T) {
		result, err := repo.FindTop3HelloBy(ctx)
		require.NoError(t, err)
		assert.Len(t, result, 3)
	})

	t.Run("FindByUsername uses the named query", func(t *testing.T) {
		result, err := repo.FindByUsername(ctx, "aaa")
		require.NoError(t, err)
		assert.Len(t, result, 2)
	})

	t.Run("FindUser", func(t *testing.T) {
		result, err := repo.FindUser(ctx, "aaa", 10)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, 10, result[0].Age)
	})

	t.Run("FindUserNameList", func(t *testing.T) {
		names, err := repo.FindUserNameList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"aaa", "aaa", "bbb", "ccc", "ddd"}, names)
	})

	t.Run("FindListByUserName", func(t *testing.T) {
		result, err := repo.FindListByUserName(ctx, "zzz")
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("FindMemberByUserName", func(t *testing.T) {
		m, err := repo.FindMemberByUserName(ctx, "bbb")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, 20, m.Age)

		m, err = repo.FindMemberByUserName(ctx, "zzz")
		require.NoError(t, err)
		assert.Nil(t, m)

		_, err = repo.FindMemberByUserName(ctx, "aaa")
		assert.ErrorIs(t, err, repository.ErrNonUniqueResult)
	})

	t.Run("FindOptionalByUserName", func(t *testing.T) {
		m, ok, err := repo.FindOptionalByUserName(ctx, "ccc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "ccc", m.UserName)

		_, ok, err = repo.FindOptionalByUserName(ctx, "zzz")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("method subjects", func(t *testing.T) {
		n, err := repo.CountByMethod(ctx, "CountByUserName", "aaa")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		exists, err := repo.ExistsByMethod(ctx, "ExistsByUserNameAndAgeLessThan", "ddd", 60)
		require.NoError(t, err)
		assert.True(t, exists)

		_, err = repo.FindByMethod(ctx, "CountByAge", 10)
		assert.ErrorIs(t, err, repository.ErrInvalidMethod)

		_, err = repo.FindByMethod(ctx, "FindByNickName", "x")
		assert.ErrorIs(t, err, repository.ErrUnknownProperty)

		_, err = repo.FindByMethod(ctx, "FindByUserName")
		assert.ErrorIs(t, err, repository.ErrArgumentCount)
	})

	t.Run("criteria by column name", func(t *testing.T) {
		result, err := repo.FindBy(ctx, types.Where(types.Gte("age", 30)).OrderBy("age", true).Top(2))
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, 50, result[0].Age)
		assert.Equal(t, 40, result[1].Age)

		exists, err := repo.ExistsBy(ctx, types.Where(types.Eq("user_name", "nobody")))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("DeleteByMethod", func(t *testing.T) {
		n, err := repo.DeleteByMethod(ctx, "DeleteByAgeGreaterThanEqual", 50)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
	})
}

func TestMemberRepository_Paging(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	for _, name := range []string{"member1", "member2", "member3", "member4", "member5", "member6"} {
		saveMembers(t, repo, model.NewMemberWithAge(name, 10))
	}
	saveMembers(t, repo, model.NewMemberWithAge("other", 20))

	t.Run("FindByPage and TotalCount", func(t *testing.T) {
		members, err := repo.FindByPage(ctx, 10, 0, 3)
		require.NoError(t, err)
		require.Len(t, members, 3)
		assert.Equal(t, "member6", members[0].UserName)
		assert.Equal(t, "member5", members[1].UserName)
		assert.Equal(t, "member4", members[2].UserName)

		members, err = repo.FindByPage(ctx, 10, 3, 3)
		require.NoError(t, err)
		require.Len(t, members, 3)
		assert.Equal(t, "member3", members[0].UserName)
		assert.Equal(t, "member2", members[1].UserName)
		assert.Equal(t, "member1", members[2].UserName)

		total, err := repo.TotalCount(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 6, total)
	})

	t.Run("FindByPage bounds", func(t *testing.T) {
		for _, limit := range []int{0, -1} {
			members, err := repo.FindByPage(ctx, 10, 0, limit)
			require.NoError(t, err)
			assert.NotNil(t, members)
			assert.Empty(t, members)
		}

		members, err := repo.FindByPage(ctx, 10, -5, 2)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, "member6", members[0].UserName)

		members, err = repo.FindByPage(ctx, 10, 6, 3)
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("FindByAge", func(t *testing.T) {
		page, err := repo.FindByAge(ctx, 10, types.NewPageRequestWithOrders(1, 3, "user_name DESC"))
		require.NoError(t, err)
		assert.Equal(t, 6, page.Total)
		assert.Len(t, page.Items, 3)
		assert.Equal(t, 2, page.TotalPages())
		assert.True(t, page.IsFirst())
		assert.True(t, page.HasNext())
		assert.Equal(t, "member6", page.Items[0].UserName)

		dtos := types.MapPage(page, model.NewMemberDto)
		assert.Equal(t, 6, dtos.Total)
		assert.Equal(t, page.Items[0].ID, dtos.Items[0].ID)

		last, err := repo.FindByAge(ctx, 10, types.NewPageRequestWithOrders(2, 3, "user_name DESC"))
		require.NoError(t, err)
		assert.True(t, last.IsLast())
		assert.Equal(t, "member3", last.Items[0].UserName)
	})

	t.Run("Page with criteria", func(t *testing.T) {
		req := types.NewDefaultPageRequest(1, 10).WithCriteria(types.Where(types.Eq("Age", 20)))
		page, err := repo.Page(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, "other", page.Items[0].UserName)

		empty, err := repo.Page(ctx, types.NewDefaultPageRequest(1, 10).WithCriteria(types.Where(types.Eq("Age", 99))))
		require.NoError(t, err)
		assert.Zero(t, empty.Total)
		assert.Empty(t, empty.Items)
	})
}

func TestMemberRepository_BulkAgePlus(t *testing.T) {
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	saved := saveMembers(t, repo,
		model.NewMemberWithAge("member1", 10),
		model.NewMemberWithAge("member2", 20),
		model.NewMemberWithAge("member3", 40),
		model.NewMemberWithAge("member4", 50),
		model.NewMemberWithAge("member5", 70),
	)

	ctx, pc := repository.NewContext(context.Background())
	held, ok, err := repo.FindByID(ctx, saved[1].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, pc.Len())

	n, err := repo.BulkAgePlus(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 0, pc.Len())

	assert.Equal(t, 20, held.Age, "held instance is not refreshed")

	reloaded, ok, err := repo.FindByID(ctx, saved[1].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotSame(t, held, reloaded)
	assert.Equal(t, 30, reloaded.Age)

	untouched, err := repo.GetOne(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 10, untouched.Age)
}

func TestMemberRepository_PersistenceContext(t *testing.T) {
	db, counter := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	member := saveMembers(t, repo, model.NewMemberWithAge("member1", 10))[0]

	t.Run("unbound context loads a new instance each time", func(t *testing.T) {
		a, _, err := repo.FindByID(context.Background(), member.ID)
		require.NoError(t, err)
		b, _, err := repo.FindByID(context.Background(), member.ID)
		require.NoError(t, err)
		assert.NotSame(t, a, b)
	})

	t.Run("bound context returns the same instance", func(t *testing.T) {
		ctx, pc := repository.NewContext(context.Background())
		counter.Reset()
		a, _, err := repo.FindByID(ctx, member.ID)
		require.NoError(t, err)
		b, _, err := repo.FindByID(ctx, member.ID)
		require.NoError(t, err)
		assert.Same(t, a, b)
		assert.Equal(t, 1, counter.Count("SELECT"))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Same(t, a, all[0])

		require.NoError(t, repo.Delete(ctx, a))
		assert.False(t, pc.Contains("member", member.ID))
	})

	t.Run("save registers the instance", func(t *testing.T) {
		ctx, pc := repository.NewContext(context.Background())
		m := model.NewMember("member2")
		_, err := repo.Save(ctx, m)
		require.NoError(t, err)
		counter.Reset()
		found, ok, err := repo.FindByID(ctx, m.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Same(t, m, found)
		assert.Zero(t, counter.Count("SELECT"))
		pc.Clear()
		assert.Zero(t, pc.Len())
	})
}

func TestMemberRepository_ReadOnly(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	saveMembers(t, repo, model.NewMemberWithAge("member1", 10))

	ctx, pc := repository.NewContext(ctx)
	m, err := repo.FindReadOnlyByUserName(ctx, "member1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, types.StateReadOnly, m.State())
	assert.Zero(t, pc.Len())

	m.UserName = "member2"
	_, err = repo.Save(ctx, m)
	assert.ErrorIs(t, err, repository.ErrReadOnlyEntity)
	assert.ErrorIs(t, repo.Update(ctx, m), repository.ErrReadOnlyEntity)

	names, err := repo.FindUserNameList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member1"}, names)

	none, err := repo.FindReadOnlyByUserName(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemberRepository_FindLockByUserName(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	saveMembers(t, repo, model.NewMemberWithAge("member1", 10))

	_, err := repo.FindLockByUserName(ctx, nil, "member1")
	assert.ErrorIs(t, err, repository.ErrTransactionRequired)

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		members, err := repo.FindLockByUserName(ctx, &tx, "member1")
		if err != nil {
			return err
		}
		require.Len(t, members, 1)
		members[0].Age = 11
		_, err = repo.SaveWithTx(ctx, &tx, members[0])
		return err
	})
	require.NoError(t, err)

	m, err := repo.FindMemberByUserName(ctx, "member1")
	require.NoError(t, err)
	assert.Equal(t, 11, m.Age)
}

type stubCustom struct {
	calls int
}

func (s *stubCustom) FindMemberCustom(ctx context.Context) ([]*model.Member, error) {
	s.calls++
	return []*model.Member{model.NewMember("custom")}, nil
}

func TestMemberRepository_Custom(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)

	repo := repository.NewMemberRepository(db)
	saveMembers(t, repo, model.NewMember("member1"), model.NewMember("member2"))
	members, err := repo.FindMemberCustom(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, types.StatePersisted, members[0].State())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	members, err = repo.FindMemberCustom(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, members)

	stub := &stubCustom{}
	composed := repository.NewMemberRepositoryWithCustom(db, stub)
	members, err = composed.FindMemberCustom(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "custom", members[0].UserName)

	count, err := composed.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemberRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	existing := saveMembers(t, repo, model.NewMemberWithAge("member1", 10))[0]

	changed := &model.Member{ID: existing.ID, UserName: "member1", Age: 99}
	fresh := &model.Member{ID: existing.ID + 1, UserName: "member2", Age: 5}
	require.NoError(t, repo.Upsert(ctx, []string{"age"}, nil, changed, fresh))
	assert.Equal(t, types.StatePersisted, fresh.State())

	got, err := repo.GetOne(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, got.Age)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Error(t, repo.Upsert(ctx, nil, nil, changed))
}
