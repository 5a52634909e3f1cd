package registry

import (
	"context"
	"testing"

	"doco/pkg/browser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *browser.Client) error { return nil }

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestRegistry_KeepsInsertionOrder(t *testing.T) {
	r := New()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(n, noop))
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names(r.Entries()))
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", noop))

	tests := []struct {
		name     string
		testName string
		fn       TestFunc
		contains string
	}{
		{"empty name", "", noop, "must not be empty"},
		{"nil func", "b", nil, "has no function"},
		{"duplicate", "a", noop, "already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.testName, tt.fn)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Freeze(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", noop))
	r.Freeze()

	err := r.Register("b", noop)
	assert.ErrorIs(t, err, ErrFrozen)
	assert.Panics(t, func() { r.MustRegister("c", noop) })
	assert.Equal(t, []string{"a"}, names(r.Entries()))
}

func TestRegistry_EntriesIsACopy(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", noop))

	entries := r.Entries()
	entries[0].Name = "changed"
	assert.Equal(t, "a", r.Entries()[0].Name)
}

func TestRegistry_Filter(t *testing.T) {
	r := New()
	for _, n := range []string{"login_works", "checks_home_page", "login_fails", "logout"} {
		r.MustRegister(n, noop)
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"", []string{"login_works", "checks_home_page", "login_fails", "logout"}},
		{"login_*", []string{"login_works", "login_fails"}},
		{"checks_home_page", []string{"checks_home_page"}},
		{"nothing*", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := r.Filter(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	_, err := r.Filter("[")
	assert.Error(t, err)
}
