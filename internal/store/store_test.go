package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildWhereEmpty(t *testing.T) {
	where, args := buildWhere(nil)
	assert.Equal(t, "", where)
	assert.Nil(t, args)

	where, args = buildWhere(Filters{})
	assert.Equal(t, "", where)
	assert.Nil(t, args)
}

func TestBuildWhereScalars(t *testing.T) {
	where, args := buildWhere(Filters{"email": "a@b.c", "is_active": true})
	// Keys are sorted, so the clause is deterministic.
	assert.Equal(t, " WHERE email = ? AND is_active = ?", where)
	assert.Equal(t, []any{"a@b.c", true}, args)
}

func TestBuildWhereIn(t *testing.T) {
	where, args := buildWhere(Filters{"id": []any{1, 2, 3}})
	assert.Equal(t, " WHERE id IN (?, ?, ?)", where)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestBuildWhereEmptySliceMatchesNothing(t *testing.T) {
	where, args := buildWhere(Filters{"id": []any{}})
	assert.Equal(t, " WHERE 1 = 0", where)
	assert.Empty(t, args)
}

func TestBuildWhereMixed(t *testing.T) {
	where, args := buildWhere(Filters{
		"role": "admin",
		"id":   []any{uint64(7), uint64(9)},
	})
	assert.Equal(t, " WHERE id IN (?, ?) AND role = ?", where)
	assert.Equal(t, []any{uint64(7), uint64(9), "admin"}, args)
}

func TestSortedKeysDeterministic(t *testing.T) {
	rec := Record{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, sortedKeys(rec))
}
