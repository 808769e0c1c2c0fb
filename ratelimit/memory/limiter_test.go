package memorylimiter

import (
	"testing"
	"time"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	l := New(map[string]Limit{"validate": {Limit: limit, Window: window}})
	now := time.Now()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := l.AllowNamed("validate", "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.AllowNamed("validate", "1.2.3.4"); ok {
		t.Error("fourth request in window should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if ok, _ := l.AllowNamed("validate", "1.1.1.1"); !ok {
		t.Fatal("first key denied")
	}
	if ok, _ := l.AllowNamed("validate", "2.2.2.2"); !ok {
		t.Error("second key should have its own budget")
	}
}

func TestWindowRollsOver(t *testing.T) {
	l, now := newTestLimiter(2, time.Minute)

	if ok, _ := l.AllowNamed("validate", "k"); !ok {
		t.Fatal("denied at start")
	}
	if ok, _ := l.AllowNamed("validate", "k"); !ok {
		t.Fatal("denied within budget")
	}
	if ok, _ := l.AllowNamed("validate", "k"); ok {
		t.Fatal("over budget allowed")
	}

	// Two full windows later everything has aged out.
	*now = now.Add(2 * time.Minute)
	if ok, _ := l.AllowNamed("validate", "k"); !ok {
		t.Error("fresh window should allow")
	}
}

func TestRequiresBucketAndKey(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	if _, err := l.AllowNamed("", "k"); err == nil {
		t.Error("empty bucket accepted")
	}
	if _, err := l.AllowNamed("validate", ""); err == nil {
		t.Error("empty key accepted")
	}
}

func TestUnknownBucketFallsBackToDefault(t *testing.T) {
	l := New(map[string]Limit{"default": {Limit: 1, Window: time.Minute}})
	if ok, _ := l.AllowNamed("unconfigured", "k"); !ok {
		t.Fatal("first request denied")
	}
	if ok, _ := l.AllowNamed("unconfigured", "k"); ok {
		t.Error("default limit not applied")
	}
}

func TestPruneDropsIdlePairs(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)
	if ok, _ := l.AllowNamed("validate", "k"); !ok {
		t.Fatal("denied")
	}
	*now = now.Add(3 * time.Minute)
	l.Prune()

	l.mu.Lock()
	n := len(l.pairs)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("pairs = %d after prune, want 0", n)
	}
}
