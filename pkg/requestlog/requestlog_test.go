package requestlog

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

func entry(id string) *Entry {
	return &Entry{ID: id, Timestamp: time.Now(), Method: "POST", Path: "/payment"}
}

func TestLogAndGet(t *testing.T) {
	s := NewMemoryStore(10)
	s.Log(entry("r1"))

	if got := s.Get("r1"); got == nil || got.Path != "/payment" {
		t.Fatalf("Get(r1) = %v", got)
	}
	if s.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestListNewestFirst(t *testing.T) {
	s := NewMemoryStore(10)
	for i := 1; i <= 3; i++ {
		s.Log(entry(fmt.Sprintf("r%d", i)))
	}

	got := s.List(0)
	if len(got) != 3 {
		t.Fatalf("List() returned %d entries", len(got))
	}
	if got[0].ID != "r3" || got[2].ID != "r1" {
		t.Errorf("order = %s..%s, want r3..r1", got[0].ID, got[2].ID)
	}

	limited := s.List(2)
	if len(limited) != 2 || limited[0].ID != "r3" {
		t.Errorf("List(2) = %v", limited)
	}
}

func TestEviction(t *testing.T) {
	s := NewMemoryStore(2)
	s.Log(entry("a"))
	s.Log(entry("b"))
	s.Log(entry("c"))

	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}
	if s.Get("a") != nil {
		t.Error("oldest entry should have been evicted")
	}
	if s.Get("c") == nil {
		t.Error("newest entry missing")
	}
}

func TestAddDelivery(t *testing.T) {
	s := NewMemoryStore(10)
	s.Log(entry("r1"))

	s.AddDelivery("r1", Delivery{Step: 1, Method: "POST", URL: "http://cb/hook", Status: 200})
	s.AddDelivery("r1", Delivery{Step: 2, Method: "PUT", URL: "http://cb/hook2", Error: "connection refused"})
	s.AddDelivery("gone", Delivery{Step: 1}) // ignored

	e := s.Get("r1")
	if len(e.Deliveries) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(e.Deliveries))
	}
	if e.Deliveries[1].Error == "" {
		t.Error("second delivery should carry the error")
	}
}

func TestClear(t *testing.T) {
	s := NewMemoryStore(10)
	s.Log(entry("r1"))
	s.Clear()
	if s.Count() != 0 || s.Get("r1") != nil {
		t.Error("Clear() did not empty the store")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("r%d", n)
			s.Log(entry(id))
			s.AddDelivery(id, Delivery{Step: 1, Status: 200})
			s.List(10)
		}(i)
	}
	wg.Wait()
	if s.Count() != 50 {
		t.Errorf("Count() = %d, want 50", s.Count())
	}
}

func TestReadersAreIsolatedFromRunningSequences(t *testing.T) {
	s := NewMemoryStore(10)
	s.Log(entry("r1"))

	// Writers keep appending deliveries while readers marshal snapshots,
	// the way the introspection endpoint does during a running sequence.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.AddDelivery("r1", Delivery{Step: i + 1, Status: 200})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, err := json.Marshal(s.List(0)); err != nil {
				t.Errorf("marshal List: %v", err)
				return
			}
			if _, err := json.Marshal(s.Get("r1")); err != nil {
				t.Errorf("marshal Get: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if got := len(s.Get("r1").Deliveries); got != 500 {
		t.Errorf("deliveries = %d, want 500", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore(10)
	s.Log(entry("r1"))
	s.AddDelivery("r1", Delivery{Step: 1, Status: 200})

	snap := s.Get("r1")
	snap.Path = "/mutated"
	snap.Deliveries[0].Status = 500
	snap.Deliveries = append(snap.Deliveries, Delivery{Step: 2})

	fresh := s.Get("r1")
	if fresh.Path != "/payment" {
		t.Errorf("stored path = %q, want /payment", fresh.Path)
	}
	if len(fresh.Deliveries) != 1 || fresh.Deliveries[0].Status != 200 {
		t.Errorf("stored deliveries mutated: %+v", fresh.Deliveries)
	}
}
