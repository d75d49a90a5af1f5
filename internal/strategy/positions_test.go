package strategy

import (
	"sync"
	"testing"
)

func TestPositionBook_UpdateAndGet(t *testing.T) {
	book := NewPositionBook()

	if got := book.Get("600519"); got != 0 {
		t.Errorf("Get() on empty book = %d, want 0", got)
	}

	book.Update("600519", 300)
	if got := book.Get("600519"); got != 300 {
		t.Errorf("Get() = %d, want 300", got)
	}

	book.Update("600519", 0)
	if len(book.Snapshot()) != 0 {
		t.Errorf("zero quantity should remove entry, got %v", book.Snapshot())
	}
}

func TestPositionBook_Concurrent(t *testing.T) {
	book := NewPositionBook()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			book.Update("000001", int64(n+1)*100)
			_ = book.Get("000001")
		}(i)
	}
	wg.Wait()

	if book.Get("000001") == 0 {
		t.Error("expected a position after concurrent updates")
	}
}
