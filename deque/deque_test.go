package deque

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flownet/model"
)

func snapshot(t float64) model.Snapshot {
	return model.Snapshot{Time: t, Values: []float64{t, 2 * t}}
}

func times(d Deque) []float64 {
	var out []float64
	d.Traverse(func(i int, item *model.Snapshot) {
		out = append(out, item.Time)
	})
	return out
}

func TestNewArrDeque(t *testing.T) {
	assert.Equal(t, 8, NewArrDeque(0).Capacity())
	assert.Equal(t, 8, NewArrDeque(8).Capacity())
	assert.Equal(t, 16, NewArrDeque(9).Capacity())
	assert.True(t, NewArrDeque(4000).IsEmpty())
	assert.Empty(t, times(NewArrDeque(4)))
}

func TestArrDeque_AddLast(t *testing.T) {
	deque := NewArrDeque(8)
	for i := 0; i < 20; i++ {
		deque.AddLast(snapshot(float64(i)))
	}
	require.True(t, deque.IsFull())
	assert.Equal(t, 8, deque.Size())
	// 只保留最新的 8 个
	assert.Equal(t, []float64{12, 13, 14, 15, 16, 17, 18, 19}, times(deque))
}

func TestArrDeque_Traverse(t *testing.T) {
	deque := NewArrDeque(8)
	for i := 0; i < 11; i++ {
		deque.AddLast(snapshot(float64(i)))
	}
	next := 0
	deque.Traverse(func(i int, item *model.Snapshot) {
		assert.Equal(t, next, i)
		assert.Equal(t, []float64{item.Time, 2 * item.Time}, item.Values)
		next++
	})
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 8, 9, 10}, times(deque))
}

func TestArrDeque_Remove(t *testing.T) {
	deque := NewArrDeque(8)
	deque.RemoveFirst()
	assert.True(t, deque.IsEmpty())

	for i := 0; i < 10; i++ {
		deque.AddLast(snapshot(float64(i)))
	}
	deque.RemoveFirst()
	assert.Equal(t, 7, deque.Size())
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 8, 9}, times(deque))

	deque.Clear()
	assert.True(t, deque.IsEmpty())
	deque.AddLast(snapshot(1))
	assert.Equal(t, []float64{1}, times(deque))
}

func BenchmarkArrDeque_AddLast(b *testing.B) {
	deque := NewArrDeque(4000)
	s := snapshot(1)
	for i := 0; i < b.N; i++ {
		deque.AddLast(s)
	}
}

func BenchmarkArrDeque_Traverse(b *testing.B) {
	deque := NewArrDeque(4000)
	for i := 0; i < 4000; i++ {
		deque.AddLast(model.Snapshot{Time: float64(i), Values: make([]float64, 64)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sum := 0.0
		deque.Traverse(func(z int, item *model.Snapshot) {
			sum += item.Values[0]
		})
	}
}
