package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmartCache_GetOrSet_MissThenHit(t *testing.T) {
	c := New(NewMapStore())
	calls := int32(0)
	producer := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]interface{}{"v": "result"}, nil
	}

	v1, hit1, err := c.GetOrSet("k1", time.Minute, producer)
	require.NoError(t, err)
	assert.False(t, hit1)
	assert.NotNil(t, v1)

	var v2 interface{}
	_, hit2, err := c.GetOrSet("k1", time.Minute, func() (interface{}, error) {
		v2 = "should not be called"
		return v2, nil
	})
	require.NoError(t, err)
	assert.True(t, hit2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSmartCache_GetOrSet_TTLZeroDisablesCache(t *testing.T) {
	c := New(NewMapStore())
	calls := int32(0)
	producer := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "x", nil
	}

	_, _, err := c.GetOrSet("k", 0, producer)
	require.NoError(t, err)
	_, _, err = c.GetOrSet("k", 0, producer)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSmartCache_GetOrSet_ProducerErrorPropagates(t *testing.T) {
	c := New(NewMapStore())
	wantErr := fmt.Errorf("boom")
	_, _, err := c.GetOrSet("k", time.Minute, func() (interface{}, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

// TestSmartCache_SingleFlight verifies invariant 2 from §8: concurrent
// GetOrSet calls on the same key invoke the producer at most once.
func TestSmartCache_SingleFlight(t *testing.T) {
	c := New(NewMapStore())
	var calls int32
	start := make(chan struct{})

	producer := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-start
		return "computed", nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]interface{}, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrSet("shared-key", time.Minute, producer)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let every goroutine block on the shared producer
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "computed", r)
	}
}
