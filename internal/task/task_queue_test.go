package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue(t *testing.T) {
	t.Parallel()

	t.Run("enqueue and consume", func(t *testing.T) {
		t.Parallel()
		q := NewTaskQueue(2, discardLogger())
		first := newFuncTask(nil)
		require.NoError(t, q.Enqueue(first))
		assert.Equal(t, 1, q.Len())

		got := <-q.GetChannel()
		assert.Equal(t, first.ID(), got.ID())
	})

	t.Run("full queue", func(t *testing.T) {
		t.Parallel()
		q := NewTaskQueue(1, discardLogger())
		require.NoError(t, q.Enqueue(newFuncTask(nil)))

		err := q.Enqueue(newFuncTask(nil))
		assert.ErrorIs(t, err, ErrQueueFull)
	})

	t.Run("closed queue", func(t *testing.T) {
		t.Parallel()
		q := NewTaskQueue(1, discardLogger())
		q.Close()
		q.Close()

		assert.ErrorIs(t, q.Enqueue(newFuncTask(nil)), ErrQueueClosed)
		_, open := <-q.GetChannel()
		assert.False(t, open)
	})

	t.Run("non-positive size", func(t *testing.T) {
		t.Parallel()
		q := NewTaskQueue(0, discardLogger())
		assert.NoError(t, q.Enqueue(newFuncTask(nil)))
	})
}
