package observe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/observe"
)

type countingSub struct{ n int }

func (c *countingSub) Wake(etime.Time) { c.n++ }

func TestNotifyWalksUpToRoot(t *testing.T) {
	root := observe.NewRoot()
	field := root.Child()
	leaf := field.Child()

	rootSub := &countingSub{}
	fieldSub := &countingSub{}
	leafSub := &countingSub{}
	root.Subscribe(rootSub)
	field.Subscribe(fieldSub)
	leaf.Subscribe(leafSub)

	leaf.Notify(etime.MinST)

	assert.Equal(t, 1, rootSub.n, "root observer fires on descendant change")
	assert.Equal(t, 1, fieldSub.n, "field observer fires on descendant change")
	assert.Equal(t, 1, leafSub.n)
}

func TestFieldObserverIgnoresSiblingChange(t *testing.T) {
	root := observe.NewRoot()
	fieldA := root.Child()
	fieldB := root.Child()

	subA := &countingSub{}
	fieldA.Subscribe(subA)

	fieldB.Notify(etime.MinST)

	assert.Equal(t, 0, subA.n)
}

func TestUnsubscribe(t *testing.T) {
	root := observe.NewRoot()
	sub := &countingSub{}
	root.Subscribe(sub)
	root.Unsubscribe(sub)
	root.Notify(etime.MinST)
	assert.Equal(t, 0, sub.n)
}
