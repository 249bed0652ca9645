package cache

import "testing"

func TestCacheKeyDockerfileLinesIsLengthPrefixed(t *testing.T) {
	t.Parallel()

	a := CacheKeyDockerfileLines([]string{"ab", "c"})
	b := CacheKeyDockerfileLines([]string{"a", "bc"})
	if a == b {
		t.Fatalf("keys collide for different line splits: %s", a)
	}
	if len(a) != 64 {
		t.Fatalf("key length = %d, want 64", len(a))
	}
}

func TestCacheKeyBuild(t *testing.T) {
	t.Parallel()

	base := BuildInputs{
		Dockerfile:    "FROM x\nRUN y\n",
		ContextDigest: "abc",
		BuildArgs:     map[string]string{"NB_USER": "jovyan", "NB_UID": "1000"},
		SchemaVersion: 1,
	}
	key := CacheKeyBuild(base)

	same := base
	same.BuildArgs = map[string]string{"NB_UID": "1000", "NB_USER": "jovyan"}
	if got := CacheKeyBuild(same); got != key {
		t.Fatalf("build arg order changed the key: %s != %s", got, key)
	}

	variants := map[string]BuildInputs{
		"dockerfile": {Dockerfile: "FROM z\nRUN y\n", ContextDigest: "abc", BuildArgs: base.BuildArgs, SchemaVersion: 1},
		"context":    {Dockerfile: base.Dockerfile, ContextDigest: "abd", BuildArgs: base.BuildArgs, SchemaVersion: 1},
		"args":       {Dockerfile: base.Dockerfile, ContextDigest: "abc", BuildArgs: map[string]string{"NB_USER": "jovyan", "NB_UID": "1001"}, SchemaVersion: 1},
		"schema":     {Dockerfile: base.Dockerfile, ContextDigest: "abc", BuildArgs: base.BuildArgs, SchemaVersion: 2},
	}
	for name, in := range variants {
		if CacheKeyBuild(in) == key {
			t.Fatalf("changing %s did not change the key", name)
		}
	}
}

func TestCacheKeyShort(t *testing.T) {
	t.Parallel()

	k := CacheKey("0123456789abcdef")
	if got := k.Short(4); got != "0123" {
		t.Fatalf("Short(4) = %q, want %q", got, "0123")
	}
	if got := k.Short(100); got != string(k) {
		t.Fatalf("Short(100) = %q, want %q", got, k)
	}
}
