package correlation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureReusesCurrentID(t *testing.T) {
	c := New()
	require.Empty(t, c.Get())

	first := c.Ensure()
	require.NotEmpty(t, first)
	assert.Equal(t, first, c.Ensure())
	assert.Equal(t, first, c.Get())
}

func TestBeginReplacesID(t *testing.T) {
	ids := []string{"a", "b"}
	c := &Context{newID: func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}}

	assert.Equal(t, "a", c.Ensure())
	assert.Equal(t, "b", c.Begin())
	assert.Equal(t, "b", c.Ensure())
}

func TestClearDropsID(t *testing.T) {
	var c Context
	first := c.Ensure()
	c.Clear()
	assert.Empty(t, c.Get())
	assert.NotEqual(t, first, c.Ensure())
}

func TestEnsureConcurrentCallersShareID(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	got := make([]string, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = c.Ensure()
		}(i)
	}
	wg.Wait()
	for _, id := range got {
		assert.Equal(t, got[0], id)
	}
}
