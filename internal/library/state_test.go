package library

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursor_Transitions(t *testing.T) {
	c := NewCursor()
	assert.Equal(t, CursorIdle, c.State())
	assert.True(t, c.HasMore())

	assert.True(t, c.Begin())
	assert.False(t, c.Begin(), "second page while loading is refused")

	c.Finish(5, nil)
	assert.Equal(t, CursorLoaded, c.State())

	assert.True(t, c.Begin())
	c.Finish(0, errors.New("timeout"))
	assert.Equal(t, CursorFailed, c.State())
	assert.True(t, c.HasMore(), "failed is retryable")

	assert.True(t, c.Begin())
	c.Finish(0, nil)
	assert.Equal(t, CursorExhausted, c.State())
	assert.False(t, c.Begin())
	assert.False(t, c.HasMore())

	c.Restart()
	assert.Equal(t, CursorLoading, c.State())
	assert.Equal(t, 0, c.Offset())
}

func TestCursor_FinishIgnoredWhenNotLoading(t *testing.T) {
	c := NewCursor()
	c.Finish(0, nil)
	assert.Equal(t, CursorIdle, c.State())
}

func TestCursor_Offset(t *testing.T) {
	c := NewCursor()
	c.Advance(50)
	c.Advance(50)
	assert.Equal(t, 100, c.Offset())
	c.SetOffset(10)
	assert.Equal(t, 10, c.Offset())
	c.Reset()
	assert.Equal(t, 0, c.Offset())
	assert.Equal(t, CursorIdle, c.State())
	assert.Equal(t, "idle", c.State().String())
}

func TestSelection_StateMachine(t *testing.T) {
	s := NewSelection()
	assert.False(t, s.IsActive())

	assert.False(t, s.SelectAll([]string{"v1", "v2"}), "select all needs an active selection")
	assert.Equal(t, 0, s.Len())

	s.Toggle("v2")
	assert.True(t, s.IsActive())
	assert.True(t, s.Contains("v2"))

	assert.True(t, s.SelectAll([]string{"v1", "v3"}))
	assert.Equal(t, []string{"v1", "v2", "v3"}, s.IDs())

	s.Clear()
	assert.True(t, s.IsActive(), "clear keeps multi-select open")
	assert.Equal(t, 0, s.Len())

	s.Toggle("v1")
	s.Toggle("v1")
	assert.False(t, s.IsActive(), "deselecting the last id leaves multi-select")

	s.Begin("v4")
	assert.True(t, s.IsActive())
	s.Finish()
	assert.False(t, s.IsActive())
	assert.Empty(t, s.Selected.Get())
}

func TestObservable_Subscribe(t *testing.T) {
	o := NewObservable(1)

	var got []int
	unsubscribe := o.Subscribe(func(v int) { got = append(got, v) })

	o.Set(2)
	o.Set(3)
	unsubscribe()
	o.Set(4)

	assert.Equal(t, []int{2, 3}, got)
	assert.Equal(t, 4, o.Get())
}

func TestObservable_ConcurrentSet(t *testing.T) {
	o := NewObservable(0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o.Set(i)
			_ = o.Get()
		}(i)
	}
	wg.Wait()
	assert.GreaterOrEqual(t, o.Get(), 0)
}
