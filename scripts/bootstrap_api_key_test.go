package main

import (
	"slices"
	"strings"
	"testing"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, opts options)
	}{
		{
			name: "defaults",
			args: []string{"-database-url", "postgres://localhost/urlguard"},
			check: func(t *testing.T, opts options) {
				if opts.owner != "system" || opts.name != "bootstrap" || opts.format != "plain" || opts.force {
					t.Errorf("options = %+v", opts)
				}
				if !slices.Equal(opts.scopes, []string{"admin"}) {
					t.Errorf("scopes = %v, want [admin]", opts.scopes)
				}
			},
		},
		{
			name: "explicit values",
			args: []string{"-database-url", "postgres://db", "-owner", "ops", "-scopes", " read, admin ,", "-format", "JSON", "-force"},
			check: func(t *testing.T, opts options) {
				if opts.owner != "ops" || opts.format != "json" || !opts.force {
					t.Errorf("options = %+v", opts)
				}
				if !slices.Equal(opts.scopes, []string{"read", "admin"}) {
					t.Errorf("scopes = %v, want [read admin]", opts.scopes)
				}
			},
		},
		{name: "missing database", args: nil, wantErr: "DATABASE_URL"},
		{name: "blank owner", args: []string{"-database-url", "x", "-owner", "  "}, wantErr: "-owner"},
		{name: "unknown format", args: []string{"-database-url", "x", "-format", "yaml"}, wantErr: "-format"},
		{name: "unknown scope", args: []string{"-database-url", "x", "-scopes", "read,root"}, wantErr: `"root"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want it to mention %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags: %v", err)
			}
			tt.check(t, opts)
		})
	}
}

func TestParseScopes_BlankMeansAdmin(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", " , ,"} {
		got, err := parseScopes(in)
		if err != nil {
			t.Fatalf("parseScopes(%q): %v", in, err)
		}
		if !slices.Equal(got, []string{"admin"}) {
			t.Errorf("parseScopes(%q) = %v, want [admin]", in, got)
		}
	}
}
