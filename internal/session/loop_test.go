package session

import (
	"errors"
	"sync"
	"testing"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := NewLoop()
	go l.Run()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Do(func() {}); err != nil {
		t.Fatalf("do: %v", err)
	}
	l.Close()

	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestLoopSerializesConcurrentPosters(t *testing.T) {
	l := NewLoop()
	go l.Run()
	defer l.Close()

	counter := 0
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = l.Do(func() { counter++ })
			}
		}()
	}
	wg.Wait()
	var final int
	_ = l.Do(func() { final = counter })
	if final != 400 {
		t.Fatalf("counter = %d, want 400", final)
	}
}

func TestLoopClosed(t *testing.T) {
	l := NewLoop()
	go l.Run()
	l.Close()
	l.Close()
	if l.Post(func() {}) {
		t.Fatal("Post accepted after Close")
	}
	if err := l.Do(func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Do after Close = %v, want ErrClosed", err)
	}
}
