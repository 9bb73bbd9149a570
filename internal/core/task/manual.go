package task

import (
	"container/heap"
	"sync"
	"time"
)

// Manual 虛擬時鐘排程器，測試用。
// 任務只在 Advance 時依 (觸發時間, 排程順序) 同步執行。
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks taskHeap
	fired int
}

var _ Scheduler = (*Manual)(nil)

// NewManual 建立從 start 開始的虛擬時鐘
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{
		at:  m.now.Add(d),
		seq: m.seq,
		fn:  fn,
		m:   m,
	}
	heap.Push(&m.tasks, t)
	return t
}

// Advance 推進虛擬時間 d，並依序執行期間到期的任務 (包含期間內新排入且到期的任務)。
//
// 回傳值:
//
//	int: 本次執行的任務數
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 || m.tasks[0].at.After(target) {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		t := heap.Pop(&m.tasks).(*manualTask)
		if t.at.After(m.now) {
			m.now = t.at
		}
		m.fired++
		m.mu.Unlock()

		t.fn()
		fired++
	}
}

// Pending 尚未觸發的任務數
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Fired 累計已觸發的任務數
func (m *Manual) Fired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}

type manualTask struct {
	at    time.Time
	seq   uint64
	fn    func()
	index int
	m     *Manual
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&t.m.tasks, t.index)
	return true
}

type taskHeap []*manualTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*manualTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
