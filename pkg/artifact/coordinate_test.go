// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"testing"
)

func TestParseCoordinate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Coordinate
		wantErr bool
	}{
		{name: "simple", input: "g:a:1.0", want: Coordinate{Group: "g", Name: "a", Version: "1.0"}},
		{name: "dotted group", input: "org.example:lib:2.3.4", want: Coordinate{Group: "org.example", Name: "lib", Version: "2.3.4"}},
		{name: "two components", input: "g:a", wantErr: true},
		{name: "four components", input: "g:a:jar:1.0", wantErr: true},
		{name: "empty group", input: ":a:1.0", wantErr: true},
		{name: "empty name", input: "g::1.0", wantErr: true},
		{name: "empty version", input: "g:a:", wantErr: true},
		{name: "whitespace", input: "g:a b:1.0", wantErr: true},
		{name: "path traversal", input: "g:..:1.0", wantErr: true},
		{name: "slash", input: "g:a/b:1.0", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "doubled dot in group", input: "a..b:n:1", wantErr: true},
		{name: "leading dot in group", input: ".a.b:n:1", wantErr: true},
		{name: "trailing dot in group", input: "a.b.:n:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCoordinate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCoordinate(%q) = %v, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidCoordinate) {
					t.Errorf("error %v does not wrap ErrInvalidCoordinate", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCoordinate(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCoordinate(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestCoordinate_DistinctGroupPaths(t *testing.T) {
	t.Parallel()

	// Every accepted group maps to its own directory.
	groups := []string{"a.b", "ab", "a.bc", "ab.c", "a", "a.b.c"}
	seen := make(map[string]string, len(groups))
	for _, g := range groups {
		c, err := ParseCoordinate(g + ":n:1")
		if err != nil {
			t.Fatalf("ParseCoordinate(%q) error = %v", g, err)
		}
		if prev, dup := seen[c.GroupPath()]; dup {
			t.Errorf("groups %q and %q share path %q", prev, g, c.GroupPath())
		}
		seen[c.GroupPath()] = g
	}
}

func TestCoordinateDerivedNames(t *testing.T) {
	t.Parallel()

	c := MustParseCoordinate("org.example:lib:1.2")
	if got := c.GroupPath(); got != "org/example" {
		t.Errorf("GroupPath() = %q", got)
	}
	if got := c.FileBase(); got != "lib-1.2" {
		t.Errorf("FileBase() = %q", got)
	}
	if got := c.Key(); got != (PackageKey{Group: "org.example", Name: "lib"}) {
		t.Errorf("Key() = %+v", got)
	}
	if c.Key() != MustParseCoordinate("org.example:lib:9.9").Key() {
		t.Error("keys of different versions should be equal")
	}
}

func TestScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dep  Dependency
		want bool
	}{
		{Dependency{Scope: ""}, true},
		{Dependency{Scope: ScopeCompile}, true},
		{Dependency{Scope: ScopeCompile, Optional: true}, false},
		{Dependency{Scope: ScopeRuntime}, false},
		{Dependency{Scope: ScopeTest}, false},
		{Dependency{Scope: ScopeProvided}, false},
	}
	for _, tt := range tests {
		if got := tt.dep.Traversable(); got != tt.want {
			t.Errorf("Traversable(%+v) = %v, want %v", tt.dep, got, tt.want)
		}
	}

	if err := Scope("weird").Validate(); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("Validate(weird) = %v, want ErrInvalidScope", err)
	}
}

func TestRepositoryValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		repo    Repository
		wantErr bool
	}{
		{name: "https", repo: Repository{ID: "central", URL: "https://repo.example.com/maven2/"}},
		{name: "file", repo: Repository{ID: "local", URL: "file:///srv/repo"}},
		{name: "s3", repo: Repository{ID: "bucket", URL: "s3://artifacts/releases"}},
		{name: "missing id", repo: Repository{URL: "https://x"}, wantErr: true},
		{name: "missing url", repo: Repository{ID: "x"}, wantErr: true},
		{name: "relative url", repo: Repository{ID: "x", URL: "repo/dir"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.repo.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRepository) {
				t.Errorf("error %v does not wrap ErrInvalidRepository", err)
			}
		})
	}
}

func TestParseChecksum(t *testing.T) {
	t.Parallel()

	sum := SumBytes([]byte("hello"))
	got, err := ParseChecksum(string(sum) + "  hello.zip\n")
	if err != nil {
		t.Fatalf("ParseChecksum() error = %v", err)
	}
	if got != sum {
		t.Errorf("ParseChecksum() = %q, want %q", got, sum)
	}

	if _, err := ParseChecksum("abc"); !errors.Is(err, ErrInvalidChecksum) {
		t.Errorf("ParseChecksum(abc) = %v, want ErrInvalidChecksum", err)
	}
	if _, err := ParseChecksum(""); !errors.Is(err, ErrInvalidChecksum) {
		t.Errorf("ParseChecksum(\"\") = %v, want ErrInvalidChecksum", err)
	}
}

func TestClosure(t *testing.T) {
	t.Parallel()

	a := MustParseCoordinate("g:a:1.0")
	b := MustParseCoordinate("g:b:2.0")
	c := Closure{{Coordinate: a, Path: "/c/a"}, {Coordinate: b, Path: "/c/b"}}

	if !c.Contains(a) || c.Contains(MustParseCoordinate("g:a:2.0")) {
		t.Error("Contains() mismatch")
	}
	if got := c.Paths(); len(got) != 2 || got[0] != "/c/a" || got[1] != "/c/b" {
		t.Errorf("Paths() = %v", got)
	}
	if art, ok := c.Lookup(PackageKey{Group: "g", Name: "b"}); !ok || art.Coordinate != b {
		t.Errorf("Lookup() = %v, %v", art, ok)
	}
}
