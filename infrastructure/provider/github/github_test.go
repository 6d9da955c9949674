package github //nolint:testpackage // tests unexported tag selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderIdentity(t *testing.T) {
	t.Parallel()

	t.Run("should expose its name and token", func(t *testing.T) {
		t.Parallel()

		// given
		provider := New("secret-token")

		// then
		assert.Equal(t, "github", provider.Name())
		assert.Equal(t, "secret-token", provider.AuthToken())
	})
}

func TestMatchesURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"https clone URL", "https://github.com/org/repo.git", true},
		{"ssh clone URL", "git@github.com:org/repo.git", true},
		{"gitlab URL", "https://gitlab.com/group/project.git", false},
		{"empty URL", "", false},
	}

	for _, test := range tests {
		t.Run("should match "+test.name, func(t *testing.T) {
			t.Parallel()

			// given
			provider := New("token")

			// then
			assert.Equal(t, test.want, provider.MatchesURL(test.url))
		})
	}
}

func TestHighestSemver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"prefixed versions", []string{"v1.0.0", "v2.1.0", "v2.0.3"}, "v2.1.0"},
		{"bare versions", []string{"1.0.0", "1.2.0", "1.1.9"}, "1.2.0"},
		{"mixed prefixes", []string{"1.0.0", "v1.1.0"}, "v1.1.0"},
		{"prerelease ordering", []string{"v2.0.0-rc.1", "v1.9.0"}, "v2.0.0-rc.1"},
		{"non-version tags ignored", []string{"nightly", "v1.0.0", "release-candidate"}, "v1.0.0"},
		{"no valid versions", []string{"nightly", "latest"}, ""},
		{"empty list", nil, ""},
	}

	for _, test := range tests {
		t.Run("should pick from "+test.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, test.want, highestSemver(test.tags))
		})
	}
}
