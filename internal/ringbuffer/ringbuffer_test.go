package ringbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushPopExact(t *testing.T) {
	rb := New(100)
	rb.Push([]float32{1, 2, 3, 4, 5})

	out, ok := rb.PopExact(5)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3, 4, 5}, out)
}

func TestOverflowDropsOldest(t *testing.T) {
	rb := New(4)
	rb.Push([]float32{1, 2, 3, 4})
	rb.Push([]float32{5, 6})

	out, ok := rb.PopExact(4)
	require.True(t, ok)
	require.Equal(t, []float32{3, 4, 5, 6}, out)
	require.Equal(t, uint64(2), rb.OverflowCount())
}

func TestPopExactBlocksUntilAvailable(t *testing.T) {
	rb := New(100)

	done := make(chan []float32, 1)
	go func() {
		out, ok := rb.PopExact(3)
		require.True(t, ok)
		done <- out
	}()

	time.Sleep(10 * time.Millisecond)
	rb.Push([]float32{7, 8, 9})

	select {
	case out := <-done:
		require.Equal(t, []float32{7, 8, 9}, out)
	case <-time.After(time.Second):
		t.Fatal("PopExact never returned")
	}
}

func TestCloseUnblocksPopExact(t *testing.T) {
	rb := New(100)

	done := make(chan bool, 1)
	go func() {
		_, ok := rb.PopExact(10)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	rb.Push([]float32{1, 2, 3})
	rb.Close()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("PopExact never unblocked on close")
	}
}
