package failover

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	t.Run("empty pool rejected", func(t *testing.T) {
		_, err := NewPool(nil)
		require.Error(t, err)
	})

	t.Run("copies credentials", func(t *testing.T) {
		creds := []string{"key-a", "key-b"}
		pool, err := NewPool(creds)
		require.NoError(t, err)

		creds[0] = "mutated"
		assert.Equal(t, "key-a", pool.Cursor().Credential())
	})
}

func TestCursorSequentialRotation(t *testing.T) {
	pool, err := NewPool([]string{"key-a", "key-b", "key-c"})
	require.NoError(t, err)

	cursor := pool.Cursor()
	seen := []string{cursor.Credential()}
	for cursor.Next() {
		seen = append(seen, cursor.Credential())
	}

	// Every credential visited exactly once, in pool order.
	assert.Equal(t, []string{"key-a", "key-b", "key-c"}, seen)
}

func TestCursorExhaustionBoundary(t *testing.T) {
	t.Run("single credential exhausts immediately", func(t *testing.T) {
		pool, err := NewPool([]string{"only"})
		require.NoError(t, err)

		cursor := pool.Cursor()
		assert.False(t, cursor.Next())
	})

	t.Run("last credential cannot advance", func(t *testing.T) {
		pool, err := NewPool([]string{"key-a", "key-b"})
		require.NoError(t, err)

		cursor := pool.Cursor()
		assert.True(t, cursor.Next())
		assert.Equal(t, 1, cursor.Index())
		assert.False(t, cursor.Next())
		assert.Equal(t, 1, cursor.Index())
	})
}

func TestCursorCommitMovesPoolForward(t *testing.T) {
	pool, err := NewPool([]string{"key-a", "key-b", "key-c"})
	require.NoError(t, err)

	cursor := pool.Cursor()
	require.True(t, cursor.Next())
	cursor.Commit()

	assert.Equal(t, 1, pool.ActiveIndex())
	assert.Equal(t, "key-b", pool.Cursor().Credential())
}

func TestCommitIsForwardOnly(t *testing.T) {
	pool, err := NewPool([]string{"key-a", "key-b", "key-c"})
	require.NoError(t, err)

	ahead := pool.Cursor()
	require.True(t, ahead.Next())
	require.True(t, ahead.Next())
	ahead.Commit()
	require.Equal(t, 2, pool.ActiveIndex())

	// A stale cursor committing an earlier index must not roll the pool back.
	stale := &Cursor{pool: pool, index: 0}
	stale.Commit()
	assert.Equal(t, 2, pool.ActiveIndex())
}

func TestCommitConcurrent(t *testing.T) {
	pool, err := NewPool([]string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			pool.commit(index)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, pool.ActiveIndex())
}

func TestExhaustedError(t *testing.T) {
	pool, err := NewPool([]string{"sk-secret-key-12345", "sk-secret-key-67890"})
	require.NoError(t, err)

	cursor := pool.Cursor()
	require.True(t, cursor.Next())

	t.Run("carries hint and opaque ref", func(t *testing.T) {
		exhausted := cursor.Exhausted("retry in about 30 seconds")
		assert.Equal(t, "retry in about 30 seconds", exhausted.WaitHint)
		assert.Equal(t, "credential#1", exhausted.CredentialRef)
		assert.Equal(t, "all model credentials rate limited, retry in about 30 seconds", exhausted.Error())
	})

	t.Run("defaults empty hint", func(t *testing.T) {
		exhausted := cursor.Exhausted("")
		assert.Equal(t, "try again later", exhausted.WaitHint)
	})

	t.Run("never leaks credential material", func(t *testing.T) {
		exhausted := cursor.Exhausted("")
		assert.NotContains(t, exhausted.Error(), "sk-secret")
		assert.NotContains(t, exhausted.CredentialRef, "sk-secret")
	})
}
