package main

import (
	"context"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "London By Night", "london-by-night"},
		{"diacritics", "Excursão à Cidade de São Paulo", "excursao-a-cidade-de-sao-paulo"},
		{"punctuation", "Big Ben & Tower Bridge!", "big-ben-tower-bridge"},
		{"hyphen runs", "Windsor -- Castle", "windsor-castle"},
		{"surrounding space", "  Stonehenge Tour  ", "stonehenge-tour"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := slugify(tc.in); got != tc.want {
				t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	once := slugify("Passeio em Brasília")
	if got := slugify(once); got != once {
		t.Errorf("slugify is not idempotent: %q -> %q", once, got)
	}
}

func TestUniqueSlugNoCollision(t *testing.T) {
	app := newTestApp(t)
	app.getTourBySlug = func(ctx context.Context, slug string) (*Tour, error) {
		return nil, nil
	}

	slug, err := app.uniqueSlug(context.Background(), "London By Night", "")
	if err != nil {
		t.Fatalf("uniqueSlug: %v", err)
	}
	if slug != "london-by-night" {
		t.Errorf("unexpected slug: %q", slug)
	}
}

func TestUniqueSlugCollisionAppendsSuffix(t *testing.T) {
	app := newTestApp(t)
	app.getTourBySlug = func(ctx context.Context, slug string) (*Tour, error) {
		return &Tour{ID: "other-id", Slug: slug}, nil
	}

	slug, err := app.uniqueSlug(context.Background(), "London By Night", "my-id")
	if err != nil {
		t.Fatalf("uniqueSlug: %v", err)
	}
	if !strings.HasPrefix(slug, "london-by-night-") {
		t.Errorf("expected timestamp suffix, got %q", slug)
	}
	if slug == "london-by-night" {
		t.Error("expected disambiguated slug on collision")
	}
}

func TestUniqueSlugSameTourKeepsSlug(t *testing.T) {
	app := newTestApp(t)
	app.getTourBySlug = func(ctx context.Context, slug string) (*Tour, error) {
		return &Tour{ID: "my-id", Slug: slug}, nil
	}

	slug, err := app.uniqueSlug(context.Background(), "London By Night", "my-id")
	if err != nil {
		t.Fatalf("uniqueSlug: %v", err)
	}
	if slug != "london-by-night" {
		t.Errorf("rename to same name should keep slug, got %q", slug)
	}
}
