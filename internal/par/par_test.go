package par

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestQueueRunsAllItemsAndCollectsFirstError(t *testing.T) {
	q := NewQueue(2)
	var count int32
	boom := errors.New("boom")
	for i := 0; i < 5; i++ {
		i := i
		q.Do(func() error {
			atomic.AddInt32(&count, 1)
			if i == 2 {
				return boom
			}
			return nil
		})
	}
	err := q.Wait()
	qt.Assert(t, qt.ErrorIs(err, boom))
	qt.Assert(t, qt.Equals(int(count), 5))
}

func TestQueueWithNoErrors(t *testing.T) {
	q := NewQueue(1)
	for i := 0; i < 3; i++ {
		q.Do(func() error { return nil })
	}
	qt.Assert(t, qt.IsNil(q.Wait()))
}

func TestErrCacheComputesOncePerKey(t *testing.T) {
	c := NewErrCache[string, int]()
	var calls int32
	compute := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	}
	v1, err1 := c.Do("a", compute)
	v2, err2 := c.Do("a", compute)
	qt.Assert(t, qt.IsNil(err1))
	qt.Assert(t, qt.IsNil(err2))
	qt.Assert(t, qt.Equals(v1, 42))
	qt.Assert(t, qt.Equals(v2, 42))
	qt.Assert(t, qt.Equals(int(calls), 1))
}

func TestErrCacheMemoizesError(t *testing.T) {
	c := NewErrCache[string, int]()
	boom := errors.New("boom")
	_, err := c.Do("k", func() (int, error) { return 0, boom })
	qt.Assert(t, qt.ErrorIs(err, boom))
	_, err = c.Do("k", func() (int, error) { return 1, nil })
	qt.Assert(t, qt.ErrorIs(err, boom))
}
