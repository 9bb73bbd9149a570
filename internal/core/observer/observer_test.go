package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList_AddRemoveEmit(t *testing.T) {
	var l List[int]

	var got []string
	a := l.Add(func(v int) { got = append(got, "a") })
	l.Add(func(v int) { got = append(got, "b") })
	assert.Equal(t, 2, l.Len())

	l.Emit(1)
	assert.Equal(t, []string{"a", "b"}, got)

	assert.True(t, l.Remove(a))
	assert.False(t, l.Remove(a))

	got = nil
	l.Emit(2)
	assert.Equal(t, []string{"b"}, got)
}

func TestList_RemoveInsideCallback(t *testing.T) {
	var l List[string]

	calls := 0
	var id ID
	id = l.Add(func(string) {
		calls++
		l.Remove(id)
	})

	l.Emit("x")
	l.Emit("y")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, l.Len())
}
