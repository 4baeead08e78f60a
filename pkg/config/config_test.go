package config

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultRetryTimeout, cfg.Retry.Timeout)
	assert.Equal(t, DefaultRetryInterval, cfg.Retry.Interval)
	assert.Equal(t, DefaultSessionWaitTimeout, cfg.SessionWait.Timeout)
	assert.Equal(t, DefaultSessionWaitInterval, cfg.SessionWait.Interval)
	assert.Equal(t, DefaultArtifactsTemplate, cfg.Artifacts.RootTemplate)
	assert.Equal(t, DefaultCulture, cfg.Culture)
	assert.NotNil(t, cfg.Variables)
}

func TestInherit_ZeroFieldsTakeParentValues(t *testing.T) {
	parent := Default()
	parent.Retry.Timeout = 9 * time.Second
	parent.Culture = "de-DE"

	child := Inherit(parent, Config{})
	assert.Equal(t, 9*time.Second, child.Retry.Timeout)
	assert.Equal(t, DefaultRetryInterval, child.Retry.Interval)
	assert.Equal(t, "de-DE", child.Culture)
	assert.Equal(t, DefaultArtifactsTemplate, child.Artifacts.RootTemplate)
}

func TestInherit_ChildValuesWin(t *testing.T) {
	parent := Default()
	child := Inherit(parent, Config{
		Retry:   Retry{Timeout: time.Second},
		Culture: "fr-FR",
	})
	assert.Equal(t, time.Second, child.Retry.Timeout)
	assert.Equal(t, DefaultRetryInterval, child.Retry.Interval, "partial retry fills the gap from the parent")
	assert.Equal(t, "fr-FR", child.Culture)
}

func TestInherit_VariablesMergedChildWins(t *testing.T) {
	parent := Default()
	parent.Variables = map[string]string{"env": "staging", "region": "eu"}

	child := Inherit(parent, Config{Variables: map[string]string{"env": "prod"}})
	assert.Equal(t, "prod", child.Variables["env"])
	assert.Equal(t, "eu", child.Variables["region"])

	// The merge must not mutate the parent's map.
	assert.Equal(t, "staging", parent.Variables["env"])
}

func TestInherit_OverridesCarryWhenChildHasNone(t *testing.T) {
	parent := Default()
	parent.Overrides = []Override{{Match: "Smoke/*"}}

	inherited := Inherit(parent, Config{})
	require.Len(t, inherited.Overrides, 1)
	assert.Equal(t, "Smoke/*", inherited.Overrides[0].Match)

	replaced := Inherit(parent, Config{Overrides: []Override{{Match: "Checkout/*"}}})
	require.Len(t, replaced.Overrides, 1)
	assert.Equal(t, "Checkout/*", replaced.Overrides[0].Match)
}

func TestForTest_AppliesMatchingOverridesInOrder(t *testing.T) {
	cfg := Default()
	cfg.Overrides = []Override{
		{
			Match:     "Checkout/*",
			Retry:     &Retry{Timeout: time.Second, Interval: 50 * time.Millisecond},
			Variables: map[string]string{"flow": "checkout"},
		},
		{
			// Later matches win over earlier ones.
			Match: "*/PlaceOrder",
			Retry: &Retry{Timeout: 2 * time.Second, Interval: 100 * time.Millisecond},
		},
	}

	got, err := cfg.ForTest("Checkout/PlaceOrder")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, got.Retry.Timeout)
	assert.Equal(t, "checkout", got.Variables["flow"])

	unmatched, err := cfg.ForTest("Auth/Login")
	require.NoError(t, err)
	assert.Equal(t, DefaultRetryTimeout, unmatched.Retry.Timeout)
	assert.NotContains(t, unmatched.Variables, "flow")
}

func TestForTest_PatternForms(t *testing.T) {
	tests := []struct {
		pattern  string
		fullName string
		want     bool
	}{
		{"Checkout/*", "Checkout/PlaceOrder", true},
		{"Checkout/*", "Checkout/Sub/PlaceOrder", false},
		{"Checkout/**", "Checkout/Sub/PlaceOrder", true},
		{"*Smoke*", "LoginSmokeTest", true},
		{"*Smoke*", "Regression", false},
		{"Auth/Login", "Auth/Login", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.fullName, func(t *testing.T) {
			cfg := Default()
			cfg.Overrides = []Override{{Match: tt.pattern, Culture: "ja-JP"}}
			got, err := cfg.ForTest(tt.fullName)
			require.NoError(t, err)
			if tt.want {
				assert.Equal(t, "ja-JP", got.Culture)
			} else {
				assert.Equal(t, DefaultCulture, got.Culture)
			}
		})
	}
}

func TestForTest_ConcurrentLookupsOnSharedConfig(t *testing.T) {
	// Overrides declared in code (not through Parse) are shared by every
	// context inheriting the config, so concurrent lookups must not
	// mutate them.
	cfg := Default()
	cfg.Overrides = []Override{{Match: "Suite/*", Culture: "ja-JP"}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cfg.ForTest("Suite/Test")
			assert.NoError(t, err)
			assert.Equal(t, "ja-JP", got.Culture)
		}()
	}
	wg.Wait()
}

func TestForTest_InvalidPatternFails(t *testing.T) {
	cfg := Default()
	cfg.Overrides = []Override{{Match: "[unclosed"}}
	_, err := cfg.ForTest("anything")
	assert.ErrorContains(t, err, "invalid override pattern")
}

func TestForTest_OverrideVariablesDoNotMutateBase(t *testing.T) {
	cfg := Default()
	cfg.Variables = map[string]string{"env": "staging"}
	cfg.Overrides = []Override{{Match: "*", Variables: map[string]string{"env": "prod"}}}

	got, err := cfg.ForTest("any")
	require.NoError(t, err)
	assert.Equal(t, "prod", got.Variables["env"])
	assert.Equal(t, "staging", cfg.Variables["env"])
}

func TestArtifactsPath(t *testing.T) {
	cfg := Default()
	cfg.Artifacts.RootTemplate = "{artifacts-root}/{run-id}/{test-name}"
	cfg.Variables = map[string]string{"artifacts-root": "/tmp/out"}

	path := cfg.ArtifactsPath(map[string]string{
		"run-id":    "r1",
		"test-name": "PlaceOrder",
	})
	assert.Equal(t, "/tmp/out/r1/PlaceOrder", path)
}

func TestArtifactsPath_ExtrasWinOverVariables(t *testing.T) {
	cfg := Default()
	cfg.Artifacts.RootTemplate = "{root}"
	cfg.Variables = map[string]string{"root": "/from-vars"}

	assert.Equal(t, "/from-extras", cfg.ArtifactsPath(map[string]string{"root": "/from-extras"}))
	assert.Equal(t, "/from-vars", cfg.ArtifactsPath(nil))
}

func TestArtifactsPath_UnknownPlaceholderLeftAsIs(t *testing.T) {
	cfg := Default()
	cfg.Artifacts.RootTemplate = "{mystery}/{run-id}"

	path := cfg.ArtifactsPath(map[string]string{"run-id": "r1"})
	assert.Equal(t, "{mystery}/r1", path)
}
