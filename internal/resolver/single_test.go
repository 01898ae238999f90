package resolver

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
)

func TestSingleNameResolverIgnoresQueriedName(t *testing.T) {
	store := newMemStore()
	owner := uuid.Must(uuid.NewV4())
	id, err := NewStoreFactory(store).Create(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	hash := namewire.HashLabel("alice")
	single := NewSingleNameResolver(id, store, hash)
	ctx := context.Background()

	if err := single.SetText(ctx, owner, "email", "alice@example.com"); err != nil {
		t.Fatal(err)
	}

	// whatever name arrives, the answer comes from the fixed label
	for _, name := range []string{"alice", "bob.vault", ""} {
		got, err := single.Resolve(ctx, mustWire(t, name), mustQuery(t, model.RecordText, "email"))
		if err != nil {
			t.Fatalf("name %q: %v", name, err)
		}
		if string(got) != "alice@example.com" {
			t.Fatalf("name %q: got %q", name, got)
		}
	}
}

func TestSingleNameResolverSharesStoreWithInner(t *testing.T) {
	store := newMemStore()
	owner := uuid.Must(uuid.NewV4())
	id, err := NewStoreFactory(store).Create(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	hash := namewire.HashLabel("alice")
	single := NewSingleNameResolver(id, store, hash)
	multi := NewCredentialResolver(id, store)
	ctx := context.Background()

	if err := single.SetAddr(ctx, owner, owner); err != nil {
		t.Fatal(err)
	}
	got, err := multi.Addr(ctx, hash)
	if err != nil || got != owner {
		t.Fatalf("Addr = %v, %v", got, err)
	}
}
