// Package httpserver exposes the namevault HTTP JSON API.
package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/account"
	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
	"github.com/avetrov/namevault/internal/registrar"
	"github.com/avetrov/namevault/internal/resolver"
)

// RegistrarService is the registrar surface the handlers call.
type RegistrarService interface {
	Commit(ctx context.Context, hash [32]byte) error
	Register(ctx context.Context, req registrar.RegisterRequest) (time.Time, error)
	Renew(ctx context.Context, label string, duration time.Duration, payer uuid.UUID, payment int64) (time.Time, error)
	RentPrice(ctx context.Context, label string, duration time.Duration) (int64, error)
	SetParams(ctx context.Context, caller uuid.UUID, p model.Params) error
	SetPrices(ctx context.Context, caller uuid.UUID, t model.PriceTable) error
}

// RegistryService is the registry surface the handlers call.
type RegistryService interface {
	Record(ctx context.Context, hash model.LabelHash) (*model.LabelRecord, error)
	IsAvailable(ctx context.Context, hash model.LabelHash) (bool, error)
	GrantRegistrar(ctx context.Context, caller, principal uuid.UUID) error
	RevokeRegistrar(ctx context.Context, caller, principal uuid.UUID) error
}

// Server wires services into HTTP handlers.
type Server struct {
	accounts account.Service
	reg      RegistrarService
	registry RegistryService
	router   resolver.Resolver
	records  resolver.RecordStore
	factory  resolver.Factory
	signKey  []byte
}

// New constructs the HTTP server with injected services.
func New(
	accounts account.Service,
	reg RegistrarService,
	registry RegistryService,
	router resolver.Resolver,
	records resolver.RecordStore,
	factory resolver.Factory,
	signKey []byte,
) *Server {
	return &Server{
		accounts: accounts,
		reg:      reg,
		registry: registry,
		router:   router,
		records:  records,
		factory:  factory,
		signKey:  signKey,
	}
}

// Handler returns the routed handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /v1/accounts", s.handleSignup)
	mux.HandleFunc("POST /v1/sessions", s.handleLogin)
	mux.HandleFunc("GET /v1/balance", s.requireAuth(s.handleBalance))

	mux.HandleFunc("POST /v1/commitments", s.requireAuth(s.handleCommit))
	mux.HandleFunc("POST /v1/registrations", s.requireAuth(s.handleRegister))
	mux.HandleFunc("POST /v1/renewals", s.requireAuth(s.handleRenew))
	mux.HandleFunc("GET /v1/price", s.handlePrice)
	mux.HandleFunc("GET /v1/labels/{hash}", s.handleLabel)
	mux.HandleFunc("POST /v1/resolve", s.handleResolve)

	mux.HandleFunc("POST /v1/resolvers", s.requireAuth(s.handleCreateResolver))
	mux.HandleFunc("POST /v1/resolvers/{id}/records", s.requireAuth(s.handleSetRecord))
	mux.HandleFunc("POST /v1/resolvers/{id}/operators", s.requireAuth(s.handleSetOperator))
	mux.HandleFunc("POST /v1/resolvers/{id}/owner", s.requireAuth(s.handleTransferOwner))
	mux.HandleFunc("POST /v1/resolvers/{id}/labels/{hash}/owner", s.requireAuth(s.handleSetLabelOwner))

	mux.HandleFunc("PUT /v1/admin/params", s.requireAuth(s.handleSetParams))
	mux.HandleFunc("PUT /v1/admin/prices", s.requireAuth(s.handleSetPrices))
	mux.HandleFunc("POST /v1/admin/registrars", s.requireAuth(s.handleGrantRegistrar))
	mux.HandleFunc("DELETE /v1/admin/registrars/{principal}", s.requireAuth(s.handleRevokeRegistrar))
	mux.HandleFunc("POST /v1/admin/credits", s.requireAuth(s.handleCredit))

	return mux
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// --- Accounts ---

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "empty username/password")
		return
	}
	id, err := s.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"principal": id.String()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	tok, acc, err := s.accounts.LoginWithIP(r.Context(), req.Username, req.Password, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok.AccessToken,
		"expires_at": tok.ExpiresAt,
		"principal":  acc.ID.String(),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	b, err := s.accounts.Balance(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": b})
}

// --- Registrar ---

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Commitment string `json:"commitment"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	hash, err := parseHash32(req.Commitment)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad commitment hash")
		return
	}
	if err := s.reg.Commit(r.Context(), hash); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	var req struct {
		Label     string `json:"label"`
		Owner     string `json:"owner,omitempty"`
		Resolver  string `json:"resolver"`
		DurationS int64  `json:"duration_s"`
		Secret    string `json:"secret"`
		Payment   int64  `json:"payment"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	owner := principal
	if req.Owner != "" {
		var err error
		if owner, err = uuid.FromString(req.Owner); err != nil {
			writeJSONError(w, http.StatusBadRequest, "bad owner")
			return
		}
	}
	resolverID, err := uuid.FromString(req.Resolver)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad resolver")
		return
	}
	secret, err := hex.DecodeString(req.Secret)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad secret")
		return
	}
	expiry, err := s.reg.Register(r.Context(), registrar.RegisterRequest{
		Label:    req.Label,
		Owner:    owner,
		Resolver: resolverID,
		Duration: time.Duration(req.DurationS) * time.Second,
		Secret:   secret,
		Payer:    principal,
		Payment:  req.Payment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expiry": expiry})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	var req struct {
		Label     string `json:"label"`
		DurationS int64  `json:"duration_s"`
		Payment   int64  `json:"payment"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	expiry, err := s.reg.Renew(r.Context(), req.Label, time.Duration(req.DurationS)*time.Second, principal, req.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expiry": expiry})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	durS, err := strconv.ParseInt(r.URL.Query().Get("duration_s"), 10, 64)
	if err != nil || label == "" {
		writeJSONError(w, http.StatusBadRequest, "label and duration_s required")
		return
	}
	price, err := s.reg.RentPrice(r.Context(), label, time.Duration(durS)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"price": price})
}

// --- Registry reads ---

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	hash, err := model.ParseLabelHash(r.PathValue("hash"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad label hash")
		return
	}
	avail, err := s.registry.IsAvailable(r.Context(), hash)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"available": avail}
	if rec, err := s.registry.Record(r.Context(), hash); err == nil {
		resp["owner"] = rec.Owner.String()
		resp["resolver"] = rec.Resolver.String()
		resp["expiry"] = rec.Expiry
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Resolution ---

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Key  string `json:"key,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	typ, err := recordTypeFromString(req.Type)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := namewire.Encode(req.Name)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	query, err := resolver.EncodeQuery(resolver.Query{Type: typ, Key: req.Key})
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	value, err := s.router.Resolve(r.Context(), name, query)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"value": base64.StdEncoding.EncodeToString(value)}
	if typ == model.RecordText {
		resp["text"] = string(value)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Resolver instances ---

func (s *Server) handleCreateResolver(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	var req struct {
		Salt string `json:"salt,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	var (
		id  uuid.UUID
		err error
	)
	if req.Salt != "" {
		var salt [32]byte
		if salt, err = parseHash32(req.Salt); err != nil {
			writeJSONError(w, http.StatusBadRequest, "bad salt")
			return
		}
		id, err = s.factory.CreateDeterministic(r.Context(), principal, salt)
	} else {
		id, err = s.factory.Create(r.Context(), principal)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) resolverFromPath(r *http.Request) (*resolver.CredentialResolver, error) {
	id, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		return nil, fmt.Errorf("bad resolver id")
	}
	return resolver.NewCredentialResolver(id, s.records), nil
}

func (s *Server) handleSetRecord(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	cred, err := s.resolverFromPath(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		LabelHash string `json:"label_hash"`
		Type      string `json:"type"`
		Key       string `json:"key,omitempty"`
		Addr      string `json:"addr,omitempty"`
		Text      string `json:"text,omitempty"`
		Value     string `json:"value,omitempty"` // base64 for contenthash/data
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	hash, err := model.ParseLabelHash(req.LabelHash)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad label hash")
		return
	}
	typ, err := recordTypeFromString(req.Type)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	switch typ {
	case model.RecordAddr:
		addr, aerr := uuid.FromString(req.Addr)
		if aerr != nil {
			writeJSONError(w, http.StatusBadRequest, "bad addr")
			return
		}
		err = cred.SetAddr(ctx, principal, hash, addr)
	case model.RecordText:
		err = cred.SetText(ctx, principal, hash, req.Key, req.Text)
	case model.RecordContenthash:
		v, derr := base64.StdEncoding.DecodeString(req.Value)
		if derr != nil {
			writeJSONError(w, http.StatusBadRequest, "bad value")
			return
		}
		err = cred.SetContenthash(ctx, principal, hash, v)
	case model.RecordData:
		v, derr := base64.StdEncoding.DecodeString(req.Value)
		if derr != nil {
			writeJSONError(w, http.StatusBadRequest, "bad value")
			return
		}
		err = cred.SetData(ctx, principal, hash, req.Key, v)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetOperator(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	cred, err := s.resolverFromPath(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Delegate string `json:"delegate"`
		Approved bool   `json:"approved"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	delegate, err := uuid.FromString(req.Delegate)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad delegate")
		return
	}
	if err := cred.SetOperator(r.Context(), principal, delegate, req.Approved); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferOwner(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	cred, err := s.resolverFromPath(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Owner string `json:"owner"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	owner, err := uuid.FromString(req.Owner)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad owner")
		return
	}
	if err := cred.TransferOwnership(r.Context(), principal, owner); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetLabelOwner(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	cred, err := s.resolverFromPath(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := model.ParseLabelHash(r.PathValue("hash"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad label hash")
		return
	}
	var req struct {
		Owner string `json:"owner"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	owner, err := uuid.FromString(req.Owner)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad owner")
		return
	}
	if err := cred.SetLabelOwner(r.Context(), principal, hash, owner); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Admin ---

func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	var req struct {
		MinLabelLen   int   `json:"min_label_len"`
		MaxLabelLen   int   `json:"max_label_len"`
		MinCommitAgeS int64 `json:"min_commit_age_s"`
		MaxCommitAgeS int64 `json:"max_commit_age_s"`
		GraceS        int64 `json:"grace_s"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	p := model.Params{
		MinLabelLength:   req.MinLabelLen,
		MaxLabelLength:   req.MaxLabelLen,
		MinCommitmentAge: time.Duration(req.MinCommitAgeS) * time.Second,
		MaxCommitmentAge: time.Duration(req.MaxCommitAgeS) * time.Second,
		GracePeriod:      time.Duration(req.GraceS) * time.Second,
	}
	if err := s.reg.SetParams(r.Context(), principal, p); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPrices(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	var req struct {
		Tiers []int64 `json:"tiers"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	if err := s.reg.SetPrices(r.Context(), principal, model.PriceTable(req.Tiers)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantRegistrar(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	var req struct {
		Principal string `json:"principal"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	target, err := uuid.FromString(req.Principal)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad principal")
		return
	}
	if err := s.registry.GrantRegistrar(r.Context(), principal, target); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeRegistrar(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	target, err := uuid.FromString(r.PathValue("principal"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad principal")
		return
	}
	if err := s.registry.RevokeRegistrar(r.Context(), principal, target); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromCtx(r.Context())
	var req struct {
		Principal string `json:"principal"`
		Amount    int64  `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	target, err := uuid.FromString(req.Principal)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad principal")
		return
	}
	if err := s.accounts.Credit(r.Context(), principal, target, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func parseHash32(s string) ([32]byte, error) {
	var h [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("want %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

func recordTypeFromString(s string) (model.RecordType, error) {
	switch s {
	case "addr":
		return model.RecordAddr, nil
	case "text":
		return model.RecordText, nil
	case "contenthash":
		return model.RecordContenthash, nil
	case "data":
		return model.RecordData, nil
	default:
		return 0, fmt.Errorf("unknown record type %q", s)
	}
}
