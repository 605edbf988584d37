package jmx_test

import (
	"testing"

	"github.com/jmx-collector/pkg/jmx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyProperties(t *testing.T) {
	kp, err := jmx.ParseKeyProperties("java.lang:type=GarbageCollector,name=ParNew")
	require.NoError(t, err)
	assert.Equal(t, "java.lang", kp.Domain)
	assert.False(t, kp.Wildcard)

	v, ok := kp.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "ParNew", v)

	_, ok = kp.Get("missing")
	assert.False(t, ok)
}

func TestParseKeyPropertiesWithoutDomain(t *testing.T) {
	kp, err := jmx.ParseKeyProperties("type=GarbageCollector,name=ParNew")
	require.NoError(t, err)
	assert.Empty(t, kp.Domain)
	assert.Len(t, kp.Properties, 2)
}

func TestParseKeyPropertiesQuotedValue(t *testing.T) {
	kp, err := jmx.ParseKeyProperties(`kafka.server:type=app-info,id="a,b:c"`)
	require.NoError(t, err)
	assert.Equal(t, "kafka.server", kp.Domain)
	v, _ := kp.Get("id")
	assert.Equal(t, `"a,b:c"`, v)
}

func TestParseKeyPropertiesErrors(t *testing.T) {
	for _, name := range []string{"java.lang:", "java.lang:type", "java.lang:=x"} {
		_, err := jmx.ParseKeyProperties(name)
		assert.Error(t, err, name)
	}
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"java.lang:type=GarbageCollector,*", "java.lang:name=ParNew,type=GarbageCollector", true},
		{"java.lang:type=GarbageCollector,name=*", "java.lang:type=GarbageCollector,name=ParNew", true},
		{"java.lang:type=GarbageCollector,name=*", "java.lang:type=Memory", false},
		{"java.lang:type=Memory", "java.lang:type=Memory", true},
		{"java.lang:type=Memory", "java.lang:type=Memory,extra=1", false},
		{"java.*:type=Memory", "java.lang:type=Memory", true},
		{"java.nio:type=Memory", "java.lang:type=Memory", false},
	}
	for _, tc := range cases {
		got, err := jmx.MatchPattern(jmx.ObjectName(tc.pattern), jmx.ObjectName(tc.name))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s vs %s", tc.pattern, tc.name)
	}
}

func TestIsPattern(t *testing.T) {
	assert.True(t, jmx.ObjectName("java.lang:type=*").IsPattern())
	assert.True(t, jmx.ObjectName("java.lang:type=Memory,*").IsPattern())
	assert.False(t, jmx.ObjectName("java.lang:type=Memory").IsPattern())
	assert.False(t, jmx.ObjectName(`app:name="a*b"`).IsPattern())
}
