package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	key := TableKey("gff", Hash([]byte("input")))
	want := []byte("parsed table bytes")

	if _, hit, err := c.Get(ctx, key); err != nil || hit {
		t.Fatalf("empty cache: hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, key, want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, hit, err := c.Get(ctx, key)
	if err != nil || !hit {
		t.Fatalf("Get after Set: hit=%v err=%v", hit, err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get = %q, want %q", got, want)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("hit after Delete")
	}
	// Deleting again is fine.
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, err := c.Get(ctx, "k"); err != nil || hit {
		t.Errorf("expired entry: hit=%v err=%v, want miss", hit, err)
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, err := c.Get(ctx, "k"); err != nil || hit {
		t.Errorf("null cache must always miss: hit=%v err=%v", hit, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestKeys(t *testing.T) {
	h := Hash([]byte("content"))
	if len(h) != 64 {
		t.Errorf("hash length = %d, want 64", len(h))
	}
	if Hash([]byte("content")) != h {
		t.Error("hash is not deterministic")
	}
	if Hash([]byte("other")) == h {
		t.Error("distinct inputs collide")
	}

	if TableKey("gff", h) == TableKey("bed", h) {
		t.Error("format must discriminate table keys")
	}

	type opts struct{ Gap int }
	if DocumentKey(h, opts{0}) == DocumentKey(h, opts{10}) {
		t.Error("options must discriminate document keys")
	}
}
