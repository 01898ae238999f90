package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
	"github.com/avetrov/namevault/internal/registrar"
	"github.com/avetrov/namevault/internal/registry"
	"github.com/avetrov/namevault/internal/repository"
)

type memLabels struct{ byHash map[model.LabelHash]model.LabelRecord }

var _ repository.LabelRepository = (*memLabels)(nil)

func (m *memLabels) Get(_ context.Context, hash model.LabelHash) (*model.LabelRecord, error) {
	rec, ok := m.byHash[hash]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := rec
	return &cpy, nil
}

func (m *memLabels) Put(_ context.Context, rec *model.LabelRecord) error {
	if m.byHash == nil {
		m.byHash = map[model.LabelHash]model.LabelRecord{}
	}
	m.byHash[rec.Hash] = *rec
	return nil
}

type memRoles struct{ granted map[uuid.UUID]bool }

var _ repository.RoleRepository = (*memRoles)(nil)

func (m *memRoles) Grant(_ context.Context, p uuid.UUID) error {
	if m.granted == nil {
		m.granted = map[uuid.UUID]bool{}
	}
	m.granted[p] = true
	return nil
}
func (m *memRoles) Revoke(_ context.Context, p uuid.UUID) error { delete(m.granted, p); return nil }
func (m *memRoles) Has(_ context.Context, p uuid.UUID) (bool, error) {
	return m.granted[p], nil
}

type memCommits struct{ byHash map[[32]byte]model.Commitment }

var _ repository.CommitmentRepository = (*memCommits)(nil)

func (m *memCommits) Create(_ context.Context, c *model.Commitment) error {
	if m.byHash == nil {
		m.byHash = map[[32]byte]model.Commitment{}
	}
	if _, ok := m.byHash[c.Hash]; ok {
		return errs.ErrAlreadyExists
	}
	m.byHash[c.Hash] = *c
	return nil
}

func (m *memCommits) Get(_ context.Context, hash [32]byte) (*model.Commitment, error) {
	c, ok := m.byHash[hash]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := c
	return &cpy, nil
}

func (m *memCommits) Delete(_ context.Context, hash [32]byte) error {
	delete(m.byHash, hash)
	return nil
}

type memPricing struct {
	prices model.PriceTable
	params model.Params
}

var _ repository.PricingRepository = (*memPricing)(nil)

func (m *memPricing) Prices(context.Context) (model.PriceTable, error) { return m.prices, nil }
func (m *memPricing) SetPrices(_ context.Context, t model.PriceTable) error {
	m.prices = t
	return nil
}
func (m *memPricing) Params(context.Context) (model.Params, error) { return m.params, nil }
func (m *memPricing) SetParams(_ context.Context, p model.Params) error {
	m.params = p
	return nil
}

type freeLedger struct{}

func (freeLedger) Collect(context.Context, uuid.UUID, uuid.UUID, int64, int64) error { return nil }

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// The read path deliberately ignores lease expiry: a record set during a live
// lease keeps resolving after the lease lapses, even though the label is
// available again for registration.
func TestResolveAfterLeaseExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	store := newMemStore()
	cred, credOwner := newInstance(t, store)

	admin := uuid.Must(uuid.NewV4())
	regSvc := registry.New(&memLabels{}, &memRoles{}, admin, registry.WithClock(now))

	registrarID := uuid.Must(uuid.NewV4())
	if err := regSvc.GrantRegistrar(ctx, admin, registrarID); err != nil {
		t.Fatal(err)
	}
	rar := registrar.New(
		&memCommits{},
		&memPricing{
			prices: model.PriceTable{1},
			params: model.Params{
				MinLabelLength:   3,
				MaxLabelLength:   63,
				MinCommitmentAge: time.Minute,
				MaxCommitmentAge: 24 * time.Hour,
			},
		},
		regSvc, freeLedger{}, passTx{},
		registrarID, admin, admin,
		registrar.WithClock(now),
	)

	// register alice for one hour, resolving through the credential instance
	owner := uuid.Must(uuid.NewV4())
	secret := []byte("0123456789abcdef0123456789abcdef")
	h := registrar.MakeCommitment("alice", owner, cred.ID(), time.Hour, secret)
	if err := rar.Commit(ctx, h); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(2 * time.Minute)
	if _, err := rar.Register(ctx, registrar.RegisterRequest{
		Label: "alice", Owner: owner, Resolver: cred.ID(),
		Duration: time.Hour, Secret: secret, Payer: owner, Payment: 1 << 20,
	}); err != nil {
		t.Fatal(err)
	}

	hash := namewire.HashLabel("alice")
	if err := cred.SetText(ctx, credOwner, hash, "email", "alice@example.com"); err != nil {
		t.Fatal(err)
	}

	router := NewRouter(regSvc, NewStoreDirectory(store), 0)
	name := mustWire(t, "alice.vault")
	query := mustQuery(t, model.RecordText, "email")

	got, err := router.Resolve(ctx, name, query)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "alice@example.com" {
		t.Fatalf("live lease: got %q", got)
	}

	// lease lapses
	clock = clock.Add(2 * time.Hour)
	if avail, _ := regSvc.IsAvailable(ctx, hash); !avail {
		t.Fatal("label must be available again after expiry")
	}

	got, err = router.Resolve(ctx, name, query)
	if err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if string(got) != "alice@example.com" {
		t.Fatalf("expired lease: got %q", got)
	}
}
