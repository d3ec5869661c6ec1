package catalog

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Get(t *testing.T) {
	c := NewStatic(DefaultProducts()...)

	p, err := c.Get(context.Background(), "widget-basic")
	require.NoError(t, err)
	assert.Equal(t, "Basic Widget", p.Name)
	assert.True(t, decimal.RequireFromString("25").Equal(p.Price))
	assert.Equal(t, "widgets", p.Category)
	assert.False(t, p.Fragile)
}

func TestStatic_GetUnknown(t *testing.T) {
	c := NewStatic(DefaultProducts()...)

	_, err := c.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nope", nf.SKU)
	assert.Equal(t, "unknown product: nope", err.Error())
}

func TestStatic_GetReturnsCopy(t *testing.T) {
	c := NewStatic(DefaultProducts()...)

	p, err := c.Get(context.Background(), "bolt-pack")
	require.NoError(t, err)
	p.Price = decimal.Zero

	again, err := c.Get(context.Background(), "bolt-pack")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(again.Price))
}

func TestStatic_List(t *testing.T) {
	c := NewStatic(DefaultProducts()...)

	list, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "bolt-pack", list[0].SKU)
	assert.Equal(t, "widget-basic", list[1].SKU)
	assert.Equal(t, "widget-pro", list[2].SKU)
}
