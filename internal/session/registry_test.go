package session

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry[*int]()
	v := 7
	id := r.Create(&v)
	if id == "" {
		t.Fatal("empty id")
	}
	got, err := r.Get(id)
	if err != nil || *got != 7 {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get unknown: err = %v", err)
	}
	if !r.Delete(id) || r.Delete(id) {
		t.Fatal("Delete should succeed exactly once")
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestRegistryConcurrentCreate(t *testing.T) {
	r := NewRegistry[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Create(i)
		}(i)
	}
	wg.Wait()
	if r.Len() != 50 {
		t.Fatalf("Len = %d, want 50", r.Len())
	}
}
