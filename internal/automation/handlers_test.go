package automation

import (
	"sync"
	"testing"
	"time"
)

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"john  doe":         "John  Doe",
		"JOHN doe":          "JOHN Doe",
		" mary\tann ":       " Mary\tAnn ",
		"anne-marie o'neil": "Anne-marie O'neil",
		"":                  "",
	}
	for in, want := range tests {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	tests := map[int64]string{0: "0.00", 5: "0.05", 50000: "500.00", 123456: "1234.56", -250: "-2.50"}
	for in, want := range tests {
		if got := FormatCents(in); got != want {
			t.Errorf("FormatCents(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Budget too high":   "budget-too-high",
		"  Went with ACME!": "went-with-acme",
		"???":               "unspecified",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := NewKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.LockMany("b", "a", "a", "")
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxSeen)
	}
	if len(locks.locks) != 0 {
		t.Fatalf("expected lock table to be empty, has %d entries", len(locks.locks))
	}
}
