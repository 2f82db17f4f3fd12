package repo

import (
	"sync/atomic"
	"testing"
)

type counter struct {
	n int
}

func TestEnsureCreatesOnce(t *testing.T) {
	created := 0
	r := New(func(k int) *counter {
		created++
		return &counter{}
	})

	for i := 0; i < 3; i++ {
		g, ok := r.Ensure(5)
		if !ok {
			t.Fatal("Ensure returned false")
		}
		g.Value().n++
		g.Release()
	}

	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	r.Read(5, func(c *counter) {
		if c.n != 3 {
			t.Errorf("n = %d, want 3", c.n)
		}
	})
}

func TestGetMissing(t *testing.T) {
	r := New[int, *counter](nil)
	if _, ok := r.Get(1); ok {
		t.Error("Get on empty repository returned ok")
	}
	if _, ok := r.Ensure(1); ok {
		t.Error("Ensure without create func returned ok")
	}
}

func TestKeysSorted(t *testing.T) {
	r := New[int, *counter](nil)
	for _, k := range []int{9, 2, 5} {
		r.Put(k, &counter{})
	}
	keys := r.Keys()
	want := []int{2, 5, 9}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestReleaseTwiceIsSafe(t *testing.T) {
	r := New[int, *counter](nil)
	r.Put(1, &counter{})
	g, _ := r.GetForWrite(1)
	g.Release()
	g.Release()
	if !r.Write(1, func(c *counter) { c.n = 7 }) {
		t.Fatal("Write after release failed")
	}
}

func TestWriteAllVisitsEveryComponent(t *testing.T) {
	r := New[int, *counter](nil)
	for k := 1; k <= 20; k++ {
		r.Put(k, &counter{})
	}
	var visits atomic.Int32
	r.WriteAll(func(k int, c *counter) {
		c.n = k
		visits.Add(1)
	})
	if visits.Load() != 20 {
		t.Errorf("visits = %d, want 20", visits.Load())
	}
	r.Read(7, func(c *counter) {
		if c.n != 7 {
			t.Errorf("n = %d, want 7", c.n)
		}
	})
}
