package workerpool

import (
	"sync/atomic"
	"testing"
)

func TestExecuteAll(t *testing.T) {
	p := New(4)
	defer p.Close()

	var sum atomic.Int64
	work := make([]func(), 0, 200)
	for i := 0; i < 200; i++ {
		i := i
		work = append(work, func() { sum.Add(int64(i)) })
	}
	p.ExecuteAll(work)

	want := int64(200 * 199 / 2)
	if got := sum.Load(); got != want {
		t.Fatalf("sum = %d, want %d", got, want)
	}
}

func TestCloseIdempotent(t *testing.T) {
	p := New(2)
	p.Close()
	p.Close()
	if p.IsRunning() {
		t.Fatal("pool reports running after Close")
	}
}

func TestDefaultWorkerCount(t *testing.T) {
	p := New(0)
	defer p.Close()
	if p.Workers() <= 0 {
		t.Fatal("expected positive default worker count")
	}
}
