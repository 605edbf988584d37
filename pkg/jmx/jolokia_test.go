package jmx_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/h2non/gock"
	"github.com/jmx-collector/pkg/jmx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jolokiaURL = "http://app01:8778"

func newMockedDialer(t *testing.T) *jmx.JolokiaDialer {
	t.Helper()
	client := &http.Client{}
	gock.InterceptClient(client)
	t.Cleanup(func() {
		gock.RestoreClient(client)
		gock.Off()
	})
	return jmx.NewJolokiaDialer(jmx.WithHTTPClient(client), jmx.WithTimeout(time.Second))
}

func mockVersion() {
	gock.New(jolokiaURL).
		Get("/jolokia/version").
		Reply(200).
		JSON(map[string]any{"status": 200, "value": map[string]any{"agent": "1.7.2", "protocol": "7.2"}})
}

func TestJolokiaSessionRoundTrip(t *testing.T) {
	d := newMockedDialer(t)
	mockVersion()

	gock.New(jolokiaURL).
		Post("/jolokia/").
		MatchType("json").
		JSON(map[string]any{
			"type":   "search",
			"mbean":  "java.lang:type=GarbageCollector,*",
			"config": map[string]any{"canonicalNaming": false},
		}).
		Reply(200).
		JSON(map[string]any{"status": 200, "value": []string{
			"java.lang:type=GarbageCollector,name=ParNew",
			"java.lang:type=GarbageCollector,name=ConcurrentMarkSweep",
		}})

	gock.New(jolokiaURL).
		Post("/jolokia/").
		MatchType("json").
		JSON(map[string]any{
			"type":   "read",
			"mbean":  "java.lang:type=Memory",
			"config": map[string]any{"ignoreErrors": true, "canonicalNaming": false},
		}).
		Reply(200).
		JSON(map[string]any{"status": 200, "value": map[string]any{
			"Verbose":         false,
			"HeapMemoryUsage": map[string]any{"used": 1, "max": 2},
		}})

	gock.New(jolokiaURL).
		Post("/jolokia/").
		MatchType("json").
		JSON(map[string]any{
			"type":      "read",
			"mbean":     "java.lang:type=Memory",
			"attribute": "HeapMemoryUsage",
			"config":    map[string]any{"canonicalNaming": false},
		}).
		Reply(200).
		JSON(map[string]any{"status": 200, "value": map[string]any{"used": 123456, "max": 999999}})

	ctx := context.Background()
	s, err := d.Dial(ctx, jmx.Endpoint{Host: "app01", Port: 8778})
	require.NoError(t, err)

	names, err := s.Query(ctx, "java.lang:type=GarbageCollector,*")
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Equal(t, jmx.ObjectName("java.lang:type=GarbageCollector,name=ParNew"), names[0])

	attrs, err := s.Attributes(ctx, "java.lang:type=Memory")
	require.NoError(t, err)
	assert.Equal(t, []string{"HeapMemoryUsage", "Verbose"}, attrs)

	v, err := s.Read(ctx, "java.lang:type=Memory", "HeapMemoryUsage")
	require.NoError(t, err)
	require.True(t, v.IsComposite())
	used, _ := v.Field("used")
	assert.Equal(t, 123456.0, used.Float())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), jmx.ErrSessionClosed)
	_, err = s.Query(ctx, "java.lang:*")
	assert.ErrorIs(t, err, jmx.ErrSessionClosed)

	assert.True(t, gock.IsDone())
}

func TestJolokiaDialSendsBasicAuth(t *testing.T) {
	d := newMockedDialer(t)
	gock.New(jolokiaURL).
		Get("/jolokia/version").
		MatchHeader("Authorization", "^Basic YWRtaW46c2VjcmV0$").
		Reply(200).
		JSON(map[string]any{"status": 200, "value": map[string]any{}})

	_, err := d.Dial(context.Background(), jmx.Endpoint{Host: "app01", Port: 8778, Username: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, gock.IsDone())
}

func TestJolokiaDialFailsOnHTTPError(t *testing.T) {
	d := newMockedDialer(t)
	gock.New(jolokiaURL).Get("/jolokia/version").Reply(401)

	_, err := d.Dial(context.Background(), jmx.Endpoint{Host: "app01", Port: 8778})
	require.Error(t, err)

	var remote *jmx.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, 401, remote.Status)
}

func TestJolokiaReadRemoteError(t *testing.T) {
	d := newMockedDialer(t)
	mockVersion()
	gock.New(jolokiaURL).
		Post("/jolokia/").
		Reply(200).
		JSON(map[string]any{
			"status":     404,
			"error_type": "javax.management.InstanceNotFoundException",
			"error":      "java.lang:type=Nope",
		})

	ctx := context.Background()
	s, err := d.Dial(ctx, jmx.Endpoint{Host: "app01", Port: 8778})
	require.NoError(t, err)

	_, err = s.Read(ctx, "java.lang:type=Nope", "Foo")
	require.Error(t, err)
	assert.ErrorIs(t, err, jmx.ErrNotFound)
	assert.Contains(t, err.Error(), "InstanceNotFoundException")
}

func TestJolokiaSearchKeepsRegisteredKeyOrder(t *testing.T) {
	d := newMockedDialer(t)
	mockVersion()

	var body map[string]any
	gock.New(jolokiaURL).
		Post("/jolokia/").
		AddMatcher(func(req *http.Request, _ *gock.Request) (bool, error) {
			data, err := io.ReadAll(req.Body)
			if err != nil {
				return false, err
			}
			req.Body = io.NopCloser(bytes.NewReader(data))
			return true, json.Unmarshal(data, &body)
		}).
		Reply(200).
		JSON(map[string]any{"status": 200, "value": []string{"app:type=Cache,name=users"}})

	ctx := context.Background()
	s, err := d.Dial(ctx, jmx.Endpoint{Host: "app01", Port: 8778})
	require.NoError(t, err)

	names, err := s.Query(ctx, "app:type=Cache,*")
	require.NoError(t, err)
	assert.Equal(t, []jmx.ObjectName{"app:type=Cache,name=users"}, names)

	require.NotNil(t, body)
	assert.Equal(t, "search", body["type"])
	assert.Equal(t, map[string]any{"canonicalNaming": false}, body["config"])
}
