package jmx_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/jmx-collector/pkg/jmx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON(t *testing.T) {
	var tree any
	require.NoError(t, json.Unmarshal([]byte(`{
		"used": 1024,
		"ratio": 0.5,
		"enabled": true,
		"name": "heap",
		"pools": ["eden", "old"],
		"nothing": null
	}`), &tree))

	v := jmx.FromJSON(tree)
	require.Equal(t, jmx.KindComposite, v.Kind())
	assert.Equal(t, []string{"enabled", "name", "nothing", "pools", "ratio", "used"}, v.Keys())

	used, _ := v.Field("used")
	assert.Equal(t, jmx.KindNumber, used.Kind())
	assert.Equal(t, 1024.0, used.Float())

	enabled, _ := v.Field("enabled")
	assert.Equal(t, jmx.KindBoolean, enabled.Kind())
	assert.True(t, enabled.Bool())

	pools, _ := v.Field("pools")
	assert.Equal(t, jmx.KindText, pools.Kind())
	assert.Equal(t, `["eden","old"]`, pools.String())

	nothing, _ := v.Field("nothing")
	assert.Equal(t, jmx.KindText, nothing.Kind())
	assert.Equal(t, "", nothing.String())
}

func TestFromJSONNumber(t *testing.T) {
	v := jmx.FromJSON(json.Number("9007199254740993"))
	assert.Equal(t, jmx.KindNumber, v.Kind())

	v = jmx.FromJSON(json.Number("not-a-number"))
	assert.Equal(t, jmx.KindText, v.Kind())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "42", jmx.Number(42).String())
	assert.Equal(t, "0.25", jmx.Number(0.25).String())
	assert.Equal(t, "false", jmx.Boolean(false).String())
	assert.Equal(t, "{a=1,b=x}", jmx.Composite(map[string]jmx.Value{"b": jmx.Text("x"), "a": jmx.Number(1)}).String())
}
