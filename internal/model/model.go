// Package model defines domain entities used by services and repositories.
package model

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// LabelHash is the keccak-256 digest of a single label's text.
type LabelHash [32]byte

// Hex returns the lowercase hex form of the hash.
func (h LabelHash) Hex() string { return hex.EncodeToString(h[:]) }

// ParseLabelHash decodes a 64-char hex string into a LabelHash.
func ParseLabelHash(s string) (LabelHash, error) {
	var h LabelHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parse label hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("parse label hash: want %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Node identifies a position in the hierarchical namespace
// (keccak-256 of parent node and label hash).
type Node [32]byte

// Hex returns the lowercase hex form of the node.
func (n Node) Hex() string { return hex.EncodeToString(n[:]) }

// LabelRecord is the registry's authoritative entry for one label.
// A record whose Expiry has passed grants no rights but is never deleted;
// re-registration overwrites it in place.
type LabelRecord struct {
	Hash     LabelHash
	Owner    uuid.UUID // owning principal
	Resolver uuid.UUID // resolver instance answering queries for the label
	Expiry   time.Time
}

// Expired reports whether the record grants no rights at the given instant.
func (r *LabelRecord) Expired(now time.Time) bool { return !r.Expiry.After(now) }

// Commitment is a pending registration commitment: the hash binds all reveal
// parameters plus a caller-chosen secret. Consumed exactly once.
type Commitment struct {
	Hash      [32]byte
	CreatedAt time.Time
}

// PriceTable maps label length to rent price per second, in minor currency
// units. Index i holds the price for labels of length i+1; lengths past the
// end use the last entry, so a single-entry table prices all lengths.
type PriceTable []int64

// PricePerSecond returns the rent rate for a label of the given length.
func (t PriceTable) PricePerSecond(length int) (int64, error) {
	if len(t) == 0 {
		return 0, fmt.Errorf("price table is empty")
	}
	if length < 1 {
		return 0, fmt.Errorf("price lookup for length %d", length)
	}
	if length > len(t) {
		return t[len(t)-1], nil
	}
	return t[length-1], nil
}

// Params are the administrator-set registration parameters.
type Params struct {
	MinLabelLength   int
	MaxLabelLength   int
	MinCommitmentAge time.Duration
	MaxCommitmentAge time.Duration
	GracePeriod      time.Duration // renewal window past expiry
}

// Validate enforces internal consistency of the parameter set.
func (p Params) Validate() error {
	if p.MinLabelLength < 1 {
		return fmt.Errorf("min label length %d < 1", p.MinLabelLength)
	}
	if p.MaxLabelLength < p.MinLabelLength {
		return fmt.Errorf("max label length %d < min %d", p.MaxLabelLength, p.MinLabelLength)
	}
	if p.MinCommitmentAge < 0 || p.MaxCommitmentAge < p.MinCommitmentAge {
		return fmt.Errorf("commitment age window [%s, %s] invalid", p.MinCommitmentAge, p.MaxCommitmentAge)
	}
	if p.GracePeriod < 0 {
		return fmt.Errorf("negative grace period")
	}
	return nil
}

// RecordType discriminates credential record kinds stored by a resolver.
type RecordType uint8

const (
	RecordAddr        RecordType = 1 // principal address record (no key)
	RecordText        RecordType = 2 // text key/value
	RecordContenthash RecordType = 3 // content-hash blob (no key)
	RecordData        RecordType = 4 // arbitrary-key binary blob
)

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	return t >= RecordAddr && t <= RecordData
}

// Account represents a principal able to hold labels and pay rent.
// The balance doubles as the payment ledger: registrations debit it.
type Account struct {
	ID        uuid.UUID // PK, JWT subject
	Username  string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-account auth salt
	Balance   int64     // minor currency units
	CreatedAt time.Time
}

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}
