package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New[string, int]()
	assert.NotNil(t, r)
	assert.Empty(t, r.Keys())
}

// get reads key through View.
func get[V any](r *Registry[string, V], key string) (V, bool) {
	var (
		out V
		ok  bool
	)
	r.View(key, func(cur V, exists bool) {
		out, ok = cur, exists
	})
	return out, ok
}

func TestUpdateCreatesAndReplaces(t *testing.T) {
	r := New[string, int]()

	v, err := r.Update("one", func(cur int, ok bool) (int, error) {
		assert.False(t, ok)
		assert.Equal(t, 0, cur)
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = r.Update("one", func(cur int, ok bool) (int, error) {
		assert.True(t, ok)
		return cur + 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 11, v)

	got, ok := get(r, "one")
	assert.True(t, ok)
	assert.Equal(t, 11, got)
}

func TestUpdateErrorLeavesEntry(t *testing.T) {
	r := New[string, string]()
	_, err := r.Update("key", func(string, bool) (string, error) { return "old", nil })
	require.NoError(t, err)

	boom := errors.New("boom")
	v, err := r.Update("key", func(string, bool) (string, error) { return "new", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "old", v)

	got, _ := get(r, "key")
	assert.Equal(t, "old", got)
}

func TestKeys(t *testing.T) {
	r := New[string, int]()
	assert.Empty(t, r.Keys())

	_, _ = r.Update("a", func(int, bool) (int, error) { return 1, nil })
	_, _ = r.Update("b", func(int, bool) (int, error) { return 2, nil })

	assert.ElementsMatch(t, []string{"a", "b"}, r.Keys())
}

func TestView(t *testing.T) {
	r := New[string, []int]()
	_, _ = r.Update("xs", func([]int, bool) ([]int, error) { return []int{1, 2}, nil })

	var seen int
	r.View("xs", func(cur []int, ok bool) {
		require.True(t, ok)
		seen = len(cur)
	})
	assert.Equal(t, 2, seen)

	r.View("missing", func(cur []int, ok bool) {
		assert.False(t, ok)
		assert.Nil(t, cur)
	})
}

func TestGetOrCreate(t *testing.T) {
	r := New[string, int]()

	v, created := r.GetOrCreate("key", func() int { return 42 })
	assert.True(t, created)
	assert.Equal(t, 42, v)

	v, created = r.GetOrCreate("key", func() int { return 99 })
	assert.False(t, created)
	assert.Equal(t, 42, v)
}

func TestConcurrentGetOrCreate(t *testing.T) {
	r := New[string, int]()

	var calls atomic.Int32
	var creators atomic.Int32
	const goroutines = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, created := r.GetOrCreate("shared", func() int {
				calls.Add(1)
				return 7
			})
			if created {
				creators.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "factory should run once")
	assert.Equal(t, int32(1), creators.Load())
}

func TestConcurrentUpdate(t *testing.T) {
	r := New[string, int]()
	const goroutines = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, _ = r.Update("counter", func(cur int, _ bool) (int, error) {
				return cur + 1, nil
			})
		}()
	}
	wg.Wait()

	v, _ := get(r, "counter")
	assert.Equal(t, goroutines, v)
}
