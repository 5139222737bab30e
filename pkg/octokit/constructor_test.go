package octokit_test

import (
	"testing"

	"github.com/aussiebroadwan/probot/pkg/octokit"
	"github.com/stretchr/testify/require"
)

func TestConstructorAppliesChildFirst(t *testing.T) {
	var order []string

	root := octokit.NewConstructor()
	parent := root.Defaults(func(o octokit.Options) octokit.Options {
		order = append(order, "parent")
		o.UserAgent += "-parent"
		return o
	})
	child := parent.Defaults(func(o octokit.Options) octokit.Options {
		order = append(order, "child")
		o.UserAgent += "-child"
		return o
	})

	opts := child.Resolve(octokit.Options{UserAgent: "base"})
	require.Equal(t, []string{"child", "parent"}, order)
	require.Equal(t, "base-child-parent", opts.UserAgent)

	// Deriving a child leaves the parent alone.
	require.Equal(t, "x-parent", parent.Resolve(octokit.Options{UserAgent: "x"}).UserAgent)
	require.Equal(t, "x", root.Resolve(octokit.Options{UserAgent: "x"}).UserAgent)
}

func TestConstructorNewUsesResolvedOptions(t *testing.T) {
	ctor := octokit.NewConstructor().Defaults(func(o octokit.Options) octokit.Options {
		if o.BaseURL == "" {
			o.BaseURL = "https://ghe.example.com/api/v3/"
		}
		return o
	})

	client := ctor.New(octokit.Options{})
	require.Equal(t, "https://ghe.example.com/api/v3", client.BaseURL())

	client = ctor.New(octokit.Options{BaseURL: "https://other.example.com"})
	require.Equal(t, "https://other.example.com", client.BaseURL())
}

func TestNewDefaultsBaseURLAndUserAgent(t *testing.T) {
	client := octokit.NewConstructor().New(octokit.Options{})
	require.Equal(t, octokit.DefaultBaseURL, client.BaseURL())
	require.Equal(t, octokit.DefaultUserAgent, client.Options().UserAgent)
}

func TestAuthMerge(t *testing.T) {
	base := &octokit.Auth{AppID: 1, PrivateKey: "key"}

	merged := base.Merge(&octokit.Auth{AppID: 2})
	require.Equal(t, &octokit.Auth{AppID: 2, PrivateKey: "key"}, merged)
	require.Equal(t, int64(1), base.AppID)

	require.Equal(t, base, base.Merge(nil))
	require.NotSame(t, base, base.Merge(nil))

	var nilAuth *octokit.Auth
	require.Equal(t, &octokit.Auth{Token: "t"}, nilAuth.Merge(&octokit.Auth{Token: "t"}))
}

func TestAuthPredicates(t *testing.T) {
	var nilAuth *octokit.Auth
	require.False(t, nilAuth.IsToken())
	require.True(t, nilAuth.IsZero())
	require.True(t, (&octokit.Auth{}).IsZero())
	require.True(t, (&octokit.Auth{Token: "t"}).IsToken())
	require.False(t, (&octokit.Auth{AppID: 1}).IsToken())
}

func TestClientOptionsIsACopy(t *testing.T) {
	auth := &octokit.Auth{Token: "t"}
	client := octokit.NewConstructor().New(octokit.Options{Auth: auth})

	opts := client.Options()
	opts.Auth.Token = "changed"

	require.Equal(t, "t", auth.Token)
	require.Equal(t, "t", client.Options().Auth.Token)
}
