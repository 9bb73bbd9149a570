package task_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestManual_FiresInOrder(t *testing.T) {
	m := task.NewManual(epoch)

	var order []int
	m.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	m.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	m.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	m.AfterFunc(1*time.Second, func() { order = append(order, 11) })

	assert.Equal(t, 0, m.Advance(500*time.Millisecond))
	assert.Equal(t, 4, m.Advance(5*time.Second))
	assert.Equal(t, []int{1, 11, 2, 3}, order)
	assert.Equal(t, epoch.Add(5500*time.Millisecond), m.Now())
}

func TestManual_ChainedTasksInsideWindow(t *testing.T) {
	m := task.NewManual(epoch)

	count := 0
	var tick func()
	tick = func() {
		count++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(10 * time.Second)
	assert.Equal(t, 10, count)
	assert.Equal(t, 1, m.Pending())
}

func TestManual_Stop(t *testing.T) {
	m := task.NewManual(epoch)

	fired := false
	h := m.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, h.Stop())
	assert.False(t, h.Stop())

	m.Advance(time.Minute)
	assert.False(t, fired)
}

func TestGroup_CancelAll(t *testing.T) {
	m := task.NewManual(epoch)
	g := task.NewGroup(m)

	fired := 0
	for i := 0; i < 5; i++ {
		g.Schedule(time.Duration(i+1)*time.Second, func() { fired++ })
	}
	assert.Equal(t, 5, g.Len())

	m.Advance(2 * time.Second)
	assert.Equal(t, 2, fired)
	assert.Equal(t, 3, g.Len())

	assert.Equal(t, 3, g.CancelAll())
	m.Advance(time.Minute)
	assert.Equal(t, 2, fired)
	assert.Equal(t, 0, g.Len())
}

func TestGroup_Cancel(t *testing.T) {
	m := task.NewManual(epoch)
	g := task.NewGroup(m)

	fired := false
	id := g.Schedule(time.Second, func() { fired = true })
	assert.True(t, g.Cancel(id))
	assert.False(t, g.Cancel(id))
	m.Advance(time.Minute)
	assert.False(t, fired)
}

func TestGroup_EveryStopsOnCancelFromInside(t *testing.T) {
	m := task.NewManual(epoch)
	g := task.NewGroup(m)

	count := 0
	g.Every(func() time.Duration { return time.Second }, func() {
		count++
		if count == 3 {
			g.CancelAll()
		}
	})

	m.Advance(time.Minute)
	assert.Equal(t, 3, count)
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, m.Pending())
}

func TestGroup_EveryJitter(t *testing.T) {
	m := task.NewManual(epoch)
	g := task.NewGroup(m)

	delays := []time.Duration{time.Second, 3 * time.Second, 2 * time.Second}
	i := 0
	var at []time.Time
	g.Every(func() time.Duration {
		d := delays[i%len(delays)]
		i++
		return d
	}, func() {
		at = append(at, m.Now())
	})

	m.Advance(6 * time.Second)
	assert.Equal(t, []time.Time{
		epoch.Add(1 * time.Second),
		epoch.Add(4 * time.Second),
		epoch.Add(6 * time.Second),
	}, at)
}

func TestKeyed_CancelKey(t *testing.T) {
	m := task.NewManual(epoch)
	k := task.NewKeyed[string](m)

	fired := map[string]int{}
	for i := 0; i < 3; i++ {
		k.Schedule("a", time.Duration(i+1)*time.Second, func() { fired["a"]++ })
		k.Schedule("b", time.Duration(i+1)*time.Second, func() { fired["b"]++ })
	}
	assert.Equal(t, 3, k.Pending("a"))

	m.Advance(time.Second)
	assert.Equal(t, 2, k.Pending("a"))

	assert.Equal(t, 2, k.CancelKey("a"))
	assert.Equal(t, 0, k.Pending("a"))

	m.Advance(time.Minute)
	assert.Equal(t, 1, fired["a"])
	assert.Equal(t, 3, fired["b"])
	assert.Equal(t, 0, k.Len())
}
