package model_test

import (
	"testing"
	"time"

	"github.com/jmx-collector/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestMetricPath(t *testing.T) {
	assert.Equal(t, "Foo_Bar", model.MetricPath("Foo Bar"))
	assert.Equal(t, "app.java.lang:type=GarbageCollector,name=PS_Scavenge.CollectionCount",
		model.MetricPath("app", `java.lang:type=GarbageCollector,name="PS Scavenge"`, "CollectionCount"))
	assert.Equal(t, "a.b.c.d", model.MetricPath("a", "b", "c", "d"))
}

func TestBasePath(t *testing.T) {
	r := model.ConfigRecord{Host: "localhost", Port: 9999}
	assert.Equal(t, "localhost_9999", r.BasePath())
	assert.Equal(t, "localhost:9999", r.Address())

	r.MetricAlias = "kafka01"
	assert.Equal(t, "kafka01", r.BasePath())
}

func TestEventConstructorsAreExclusive(t *testing.T) {
	o := model.EventOrigin{Host: "h", Path: "/etc/jmx", Type: "jmx"}
	now := time.Now()

	n := model.NewNumberEvent(o, "a.b", 42, now)
	assert.True(t, n.IsNumber())
	assert.Nil(t, n.ValueString)
	assert.Equal(t, 42.0, n.Value())
	assert.Equal(t, "h", n.Host)

	s := model.NewStringEvent(o, "a.c", "RUNNING", now)
	assert.False(t, s.IsNumber())
	assert.Nil(t, s.ValueNumber)
	assert.Equal(t, "RUNNING", s.Value())
}
