// Command nv is a CLI client for the namevault service.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/crypto"
	"github.com/avetrov/namevault/internal/namewire"
	"github.com/avetrov/namevault/internal/registrar"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Principal   string    `json:"principal"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "namevault")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "namevault")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(tokenPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (tokenFile, error) {
	var tf tokenFile
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return tf, err
	}
	if err := json.Unmarshal(b, &tf); err != nil {
		return tf, err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return tf, errors.New("no valid token (login required)")
	}
	return tf, nil
}

// ---- http calls ----

type apiError struct {
	Error string `json:"error"`
}

func call(ctx context.Context, base, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, ae.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}
	if out != nil && len(raw) > 0 {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func mustToken() tokenFile {
	tf, err := loadToken()
	if err != nil {
		fail(err)
	}
	return tf
}

func usage() {
	fmt.Fprintf(os.Stderr, `nv CLI
Usage:
  nv -addr http://HOST:PORT <cmd> [args]

Commands:
  version
  signup     -u <username> -p <password>
  login      -u <username> -p <password>                 (saves token)
  balance
  price      -label <label> -duration <dur>
  whois      -label <label>
  commit     -label <label> -resolver <uuid> -duration <dur> [-owner <uuid>]
             (prints the secret needed for register)
  register   -label <label> -resolver <uuid> -duration <dur> -secret <hex>
             -payment <n> [-owner <uuid>]
  renew      -label <label> -duration <dur> -payment <n>
  resolve    -name <a.b.c> -type <addr|text|contenthash|data> [-key <k>]
  new-resolver [-salt <hex32>]
  set-text   -resolver <uuid> -label <label> -key <k> -value <v>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the HTTP API.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {

	case "version":
		fmt.Printf("nv %s (%s)\n", version, buildDate)

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		user := fs.String("u", "", "username")
		pass := fs.String("p", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *user == "" || *pass == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}
		var out struct {
			Principal string `json:"principal"`
		}
		if err := call(ctx, *addr, http.MethodPost, "/v1/accounts", "",
			map[string]string{"username": *user, "password": *pass}, &out); err != nil {
			fail(err)
		}
		fmt.Println(out.Principal)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		user := fs.String("u", "", "username")
		pass := fs.String("p", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *user == "" || *pass == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}
		var out struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
			Principal string    `json:"principal"`
		}
		if err := call(ctx, *addr, http.MethodPost, "/v1/sessions", "",
			map[string]string{"username": *user, "password": *pass}, &out); err != nil {
			fail(err)
		}
		if err := saveToken(tokenFile{AccessToken: out.Token, ExpiresAt: out.ExpiresAt, Principal: out.Principal}); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "balance":
		tf := mustToken()
		var out struct {
			Balance int64 `json:"balance"`
		}
		if err := call(ctx, *addr, http.MethodGet, "/v1/balance", tf.AccessToken, nil, &out); err != nil {
			fail(err)
		}
		fmt.Println(out.Balance)

	case "price":
		fs := flag.NewFlagSet("price", flag.ExitOnError)
		label := fs.String("label", "", "label")
		dur := fs.Duration("duration", 365*24*time.Hour, "registration duration")
		_ = fs.Parse(flag.Args()[1:])
		var out struct {
			Price int64 `json:"price"`
		}
		path := fmt.Sprintf("/v1/price?label=%s&duration_s=%d", *label, int64(dur.Seconds()))
		if err := call(ctx, *addr, http.MethodGet, path, "", nil, &out); err != nil {
			fail(err)
		}
		fmt.Println(out.Price)

	case "whois":
		fs := flag.NewFlagSet("whois", flag.ExitOnError)
		label := fs.String("label", "", "label")
		_ = fs.Parse(flag.Args()[1:])
		hash := namewire.HashLabel(*label)
		var out map[string]any
		if err := call(ctx, *addr, http.MethodGet, "/v1/labels/"+hash.Hex(), "", nil, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "commit":
		fs := flag.NewFlagSet("commit", flag.ExitOnError)
		label := fs.String("label", "", "label")
		owner := fs.String("owner", "", "owner UUID (defaults to logged-in principal)")
		res := fs.String("resolver", "", "resolver UUID")
		dur := fs.Duration("duration", 365*24*time.Hour, "registration duration")
		_ = fs.Parse(flag.Args()[1:])
		tf := mustToken()

		ownerID, resolverID := parseOwnerResolver(*owner, tf.Principal, *res)
		secret, err := crypto.RandBytes(32)
		if err != nil {
			fail(err)
		}
		commitment := registrar.MakeCommitment(*label, ownerID, resolverID, *dur, secret)
		if err := call(ctx, *addr, http.MethodPost, "/v1/commitments", tf.AccessToken,
			map[string]string{"commitment": hex.EncodeToString(commitment[:])}, nil); err != nil {
			fail(err)
		}
		printJSON(map[string]string{
			"commitment": hex.EncodeToString(commitment[:]),
			"secret":     hex.EncodeToString(secret),
		})

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		label := fs.String("label", "", "label")
		owner := fs.String("owner", "", "owner UUID (defaults to logged-in principal)")
		res := fs.String("resolver", "", "resolver UUID")
		dur := fs.Duration("duration", 365*24*time.Hour, "registration duration")
		secret := fs.String("secret", "", "secret from commit (hex)")
		payment := fs.Int64("payment", 0, "payment amount")
		_ = fs.Parse(flag.Args()[1:])
		tf := mustToken()

		req := map[string]any{
			"label":      *label,
			"resolver":   *res,
			"duration_s": int64(dur.Seconds()),
			"secret":     *secret,
			"payment":    *payment,
		}
		if *owner != "" {
			req["owner"] = *owner
		}
		var out map[string]any
		if err := call(ctx, *addr, http.MethodPost, "/v1/registrations", tf.AccessToken, req, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "renew":
		fs := flag.NewFlagSet("renew", flag.ExitOnError)
		label := fs.String("label", "", "label")
		dur := fs.Duration("duration", 365*24*time.Hour, "extension duration")
		payment := fs.Int64("payment", 0, "payment amount")
		_ = fs.Parse(flag.Args()[1:])
		tf := mustToken()
		var out map[string]any
		if err := call(ctx, *addr, http.MethodPost, "/v1/renewals", tf.AccessToken, map[string]any{
			"label":      *label,
			"duration_s": int64(dur.Seconds()),
			"payment":    *payment,
		}, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "resolve":
		fs := flag.NewFlagSet("resolve", flag.ExitOnError)
		name := fs.String("name", "", "dotted name")
		typ := fs.String("type", "text", "record type")
		key := fs.String("key", "", "record key")
		_ = fs.Parse(flag.Args()[1:])
		var out map[string]any
		if err := call(ctx, *addr, http.MethodPost, "/v1/resolve", "", map[string]string{
			"name": *name,
			"type": *typ,
			"key":  *key,
		}, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "new-resolver":
		fs := flag.NewFlagSet("new-resolver", flag.ExitOnError)
		salt := fs.String("salt", "", "32-byte salt (hex) for a deterministic instance")
		_ = fs.Parse(flag.Args()[1:])
		tf := mustToken()
		var out struct {
			ID string `json:"id"`
		}
		if err := call(ctx, *addr, http.MethodPost, "/v1/resolvers", tf.AccessToken,
			map[string]string{"salt": *salt}, &out); err != nil {
			fail(err)
		}
		fmt.Println(out.ID)

	case "set-text":
		fs := flag.NewFlagSet("set-text", flag.ExitOnError)
		res := fs.String("resolver", "", "resolver instance UUID")
		label := fs.String("label", "", "label")
		key := fs.String("key", "", "record key")
		value := fs.String("value", "", "record value")
		_ = fs.Parse(flag.Args()[1:])
		tf := mustToken()
		hash := namewire.HashLabel(*label)
		if err := call(ctx, *addr, http.MethodPost, "/v1/resolvers/"+*res+"/records", tf.AccessToken,
			map[string]any{
				"label_hash": hash.Hex(),
				"type":       "text",
				"key":        *key,
				"text":       *value,
			}, nil); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	default:
		usage()
	}
}

func parseOwnerResolver(owner, fallback, res string) (u.UUID, u.UUID) {
	if owner == "" {
		owner = fallback
	}
	ownerID, err := u.FromString(owner)
	if err != nil {
		fail(fmt.Errorf("bad owner: %w", err))
	}
	resolverID, err := u.FromString(res)
	if err != nil {
		fail(fmt.Errorf("bad resolver: %w", err))
	}
	return ownerID, resolverID
}
