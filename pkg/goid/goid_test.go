package goid_test

import (
	"sync"
	"testing"

	"github.com/jmx-collector/pkg/goid"
	"github.com/stretchr/testify/assert"
)

func TestGetGIDDistinctPerGoroutine(t *testing.T) {
	main := goid.GetGID()
	assert.NotZero(t, main)
	assert.Equal(t, main, goid.GetGID())

	var (
		wg    sync.WaitGroup
		other uint64
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = goid.GetGID()
	}()
	wg.Wait()

	assert.NotZero(t, other)
	assert.NotEqual(t, main, other)
}
