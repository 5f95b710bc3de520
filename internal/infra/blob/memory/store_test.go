package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"fieldplot/internal/infra/blob/core"
)

func TestPutGetHead(t *testing.T) {
	store := New()
	ctx := context.Background()
	info, err := store.Put(ctx, "charts/a.png", strings.NewReader("png-bytes"), core.PutOptions{
		ContentType: "image/png",
		Metadata:    map[string]string{"template": "specimen-series"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 9 {
		t.Errorf("size = %d, want 9", info.Size)
	}

	head, err := store.Head(ctx, "charts/a.png")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Metadata["template"] != "specimen-series" {
		t.Errorf("metadata = %v", head.Metadata)
	}

	_, rc, err := store.Get(ctx, "charts/a.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	payload, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	_ = rc.Close()
	if string(payload) != "png-bytes" {
		t.Errorf("payload = %q", payload)
	}
}

func TestMetadataIsolation(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{
		Metadata: map[string]string{"template": "specimen-series"},
	}); err != nil {
		t.Fatal(err)
	}
	head, err := store.Head(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	head.Metadata["template"] = "tampered"

	info, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	_ = rc.Close()
	if info.Metadata["template"] != "specimen-series" {
		t.Fatalf("mutating a returned Info leaked into the store: %v", info.Metadata)
	}
	info.Metadata["template"] = "tampered-again"
	again, err := store.Head(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if again.Metadata["template"] != "specimen-series" {
		t.Fatalf("stored metadata mutated: %v", again.Metadata)
	}
}

func TestPutDuplicate(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("y"), core.PutOptions{}); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestDeleteAndList(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"charts/a", "charts/b", "other/c"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	infos, err := store.List(ctx, "charts/")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d infos, want 2", len(infos))
	}
	existed, err := store.Delete(ctx, "charts/a")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	if _, err := store.Head(ctx, "charts/a"); err == nil {
		t.Fatal("expected missing blob after delete")
	}
}

func TestPresignURL(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatal(err)
	}
	url, err := store.PresignURL(ctx, "k", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if url != "mem://k" {
		t.Errorf("url = %q", url)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatal("expected unsupported method error")
	}
}
