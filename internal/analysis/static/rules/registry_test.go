package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
)

func TestDefaultRules(t *testing.T) {
	all := Default()
	assert.Equal(t, []string{"jwt-hardcode", "jwt-exposure", "jwt-expo", "orm-expose", "require-request"}, Names(all))

	// Every cataloged check is emitted by exactly one rule.
	owners := map[core.CheckID]string{}
	for _, r := range all {
		assert.NotEmpty(t, r.Description())
		for _, id := range r.Checks() {
			prev, dup := owners[id]
			assert.False(t, dup, "%s claimed by %s and %s", id, prev, r.Name())
			owners[id] = r.Name()
		}
	}
	assert.ElementsMatch(t, core.CheckIDs(), keys(owners))
}

func keys(m map[core.CheckID]string) []core.CheckID {
	out := make([]core.CheckID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSelect(t *testing.T) {
	all := Default()

	got, err := Select(all, nil, nil)
	require.NoError(t, err)
	assert.Len(t, got, len(all))

	got, err = Select(all, []string{"orm-expose", "jwt-hardcode"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"jwt-hardcode", "orm-expose"}, Names(got), "registration order is preserved")

	got, err = Select(all, nil, []string{"jwt-expo"})
	require.NoError(t, err)
	assert.NotContains(t, Names(got), "jwt-expo")
	assert.Len(t, got, len(all)-1)

	_, err = Select(all, []string{"jwt-hardcoded"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rule")

	_, err = Select(all, nil, []string{"nope"})
	assert.Error(t, err)
}
