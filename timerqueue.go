package aio

import (
	"slices"
	"sort"
)

// A timerQueue keeps pending loop timers ordered by deadline, earliest
// first, FIFO among equal deadlines. Push finds the slot by binary
// search; cancelled timers stay in place and are skipped lazily when
// they reach the front.
type timerQueue struct {
	s []*loopTimer
}

func (q *timerQueue) Empty() bool {
	return len(q.s) == 0
}

func (q *timerQueue) Push(t *loopTimer) {
	i := sort.Search(len(q.s), func(i int) bool {
		return t.less(q.s[i])
	})
	q.s = slices.Insert(q.s, i, t)
}

func (q *timerQueue) Peek() *loopTimer {
	if len(q.s) == 0 {
		return nil
	}
	return q.s[0]
}

func (q *timerQueue) Pop() *loopTimer {
	t := q.s[0]
	q.s[0] = nil
	q.s = q.s[1:]
	if len(q.s) == 0 {
		q.s = nil
	}
	return t
}

func (t *loopTimer) less(other *loopTimer) bool {
	return t.when.Before(other.when)
}
