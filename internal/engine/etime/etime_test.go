package etime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
)

func TestDomainBounds(t *testing.T) {
	require.True(t, etime.MinST.After(etime.MinDT) || etime.MinST == etime.MinDT+1)
	assert.Equal(t, etime.MinDT.Add(etime.MinDelta), etime.MinST)
	assert.Equal(t, etime.MaxDT.Sub(etime.MaxET), etime.MinDelta)
	assert.True(t, etime.MinST.InRange())
	assert.True(t, etime.MaxET.InRange())
	assert.False(t, etime.MinDT.InRange())
}

func TestAddSub(t *testing.T) {
	t0 := etime.MinST
	t1 := t0.Add(5 * etime.MinDelta)
	assert.Equal(t, etime.Delta(5), t1.Sub(t0))
	assert.True(t, t1.After(t0))
	assert.True(t, t0.Before(t1))
}

func TestMinMax(t *testing.T) {
	a, b := etime.MinST, etime.MinST.Add(10)
	assert.Equal(t, a, etime.Min(a, b))
	assert.Equal(t, b, etime.Max(a, b))
}
