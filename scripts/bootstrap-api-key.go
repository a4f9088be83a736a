// Command bootstrap-api-key creates the first admin API key directly in the
// database, for installations that have no key yet to call the API with.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/urlguard/urlguard/internal/auth"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/repository"
)

type options struct {
	databaseURL string
	owner       string
	name        string
	scopes      []string
	format      string
	force       bool
}

// issuedKey is the -format json document. Key is the only copy of the secret.
type issuedKey struct {
	KeyID     string   `json:"key_id"`
	Owner     string   `json:"owner"`
	Key       string   `json:"key"`
	KeyPrefix string   `json:"key_prefix"`
	Scopes    []string `json:"scopes"`
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "[-] Error:", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "[-] Error:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("bootstrap-api-key", flag.ContinueOnError)
	var opts options
	var scopes string
	fs.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	fs.StringVar(&opts.owner, "owner", "system", "owner recorded on the key")
	fs.StringVar(&opts.name, "name", "bootstrap", "key name")
	fs.StringVar(&scopes, "scopes", model.ScopeAdmin, "comma-separated scopes (read,admin)")
	fs.StringVar(&opts.format, "format", "plain", "output format: plain or json")
	fs.BoolVar(&opts.force, "force", false, "create the key even if an active admin key exists")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch {
	case opts.databaseURL == "":
		return options{}, errors.New("DATABASE_URL or -database-url is required")
	case strings.TrimSpace(opts.owner) == "":
		return options{}, errors.New("-owner must not be empty")
	}
	opts.format = strings.ToLower(opts.format)
	if opts.format != "plain" && opts.format != "json" {
		return options{}, fmt.Errorf("unknown -format %q; use plain or json", opts.format)
	}

	parsed, err := parseScopes(scopes)
	if err != nil {
		return options{}, err
	}
	opts.scopes = parsed
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	repo, err := repository.New(ctx, opts.databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	if !opts.force {
		admins, err := repo.CountActiveAdminKeys(ctx)
		if err != nil {
			return fmt.Errorf("count admin keys: %w", err)
		}
		if admins > 0 {
			return fmt.Errorf("%d active admin key(s) already exist; pass -force to create another", admins)
		}
	}

	generated, err := auth.GenerateAPIKey(auth.EnvLive)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	key := &model.APIKey{
		ID:            ulid.Make().String(),
		Owner:         opts.owner,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        opts.scopes,
		RateLimitTier: model.TierUnlimited,
		Name:          opts.name,
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("store key: %w", err)
	}

	if opts.format == "plain" {
		_, err := fmt.Fprintln(out, generated.Plaintext)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(issuedKey{
		KeyID:     key.ID,
		Owner:     key.Owner,
		Key:       generated.Plaintext,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
	})
}

// parseScopes splits a comma list, ignoring blanks. An empty list means admin.
func parseScopes(input string) ([]string, error) {
	var scopes []string
	for _, part := range strings.Split(input, ",") {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if !model.IsValidScope(scope) {
			return nil, fmt.Errorf("unknown scope %q", scope)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		return []string{model.ScopeAdmin}, nil
	}
	return scopes, nil
}
