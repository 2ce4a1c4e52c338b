package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func TestLocal_SetGet(t *testing.T) {
	c := NewLocal(time.Minute)
	ctx := context.Background()

	var got item
	ok, err := c.Get(ctx, "tours:item:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "tours:item:1", item{Name: "The Sea Explorer", Price: 497}))

	ok, err = c.Get(ctx, "tours:item:1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, item{Name: "The Sea Explorer", Price: 497}, got)
}

func TestLocal_Expires(t *testing.T) {
	c := NewLocal(20 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1))

	time.Sleep(40 * time.Millisecond)

	var v int
	ok, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocal_DeletePrefix(t *testing.T) {
	c := NewLocal(time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "tours:list:a", 1))
	require.NoError(t, c.Set(ctx, "tours:item:b", 2))
	require.NoError(t, c.Set(ctx, "other:c", 3))

	require.NoError(t, c.DeletePrefix(ctx, "tours:"))

	var v int
	ok, _ := c.Get(ctx, "tours:list:a", &v)
	assert.False(t, ok)
	ok, _ = c.Get(ctx, "tours:item:b", &v)
	assert.False(t, ok)
	ok, _ = c.Get(ctx, "other:c", &v)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
