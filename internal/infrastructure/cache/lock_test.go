package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func TestLocker_Acquire(t *testing.T) {
	s := miniredis.RunT(t)
	c, err := OpenRedis(context.Background(), s.Addr(), 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	l := NewLocker(c, "test:")

	release, ok, err := l.Acquire(ctx, "sweep", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if !s.Exists("test:sweep") {
		t.Fatal("lock key not written with prefix")
	}

	if _, ok, err := l.Acquire(ctx, "sweep", time.Minute); err != nil || ok {
		t.Fatalf("second acquire must fail while held: ok=%v err=%v", ok, err)
	}

	release()
	if s.Exists("test:sweep") {
		t.Fatal("release must delete the key")
	}
	if _, ok, _ := l.Acquire(ctx, "sweep", time.Minute); !ok {
		t.Fatal("acquire after release must succeed")
	}
}

func TestLocker_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	s := miniredis.RunT(t)
	c, err := OpenRedis(context.Background(), s.Addr(), 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	l := NewLocker(c, "")

	oldRelease, ok, _ := l.Acquire(ctx, "k", time.Second)
	if !ok {
		t.Fatal("acquire failed")
	}
	s.FastForward(2 * time.Second)

	if _, ok, _ := l.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("acquire after expiry must succeed")
	}
	oldRelease()
	if !s.Exists("k") {
		t.Fatal("stale holder released someone else's lease")
	}
}
