package alias_test

import (
	"testing"

	"github.com/jmx-collector/pkg/alias"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gc = "java.lang:type=GarbageCollector,name=ParNew"

func TestResolveIdentity(t *testing.T) {
	for _, tpl := range []string{"", "heap", "jvm.memory", "broken ${"} {
		got, err := alias.Resolve(tpl, gc)
		require.NoError(t, err)
		assert.Equal(t, tpl, got)
	}
}

func TestResolvePlaceholders(t *testing.T) {
	got, err := alias.Resolve("${type}.${name}", gc)
	require.NoError(t, err)
	assert.Equal(t, "GarbageCollector.ParNew", got)

	got, err = alias.Resolve("gc.${name}.${name}", "type=GarbageCollector,name=G1 Young")
	require.NoError(t, err)
	assert.Equal(t, "gc.G1 Young.G1 Young", got)
}

func TestResolveUnknownKey(t *testing.T) {
	_, err := alias.Resolve("${type}.${pool}", gc)
	assert.ErrorIs(t, err, alias.ErrUnknownKey)
}

func TestResolveCyclicValue(t *testing.T) {
	_, err := alias.Resolve("${name}", "app:name=${name}")
	assert.ErrorIs(t, err, alias.ErrTooManySubstitutions)
}

func TestResolveInvalidObjectName(t *testing.T) {
	_, err := alias.Resolve("${name}", "java.lang:")
	assert.Error(t, err)
}
