package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadProcessStats(t *testing.T) {
	st := ReadProcessStats()
	assert.Greater(t, st.HeapSys, uint64(0))
	assert.GreaterOrEqual(t, st.Goroutines, 1)
	assert.Contains(t, st.String(), "goroutines=")
}

func TestNoopShutdown(t *testing.T) {
	assert.NoError(t, NoopShutdown(context.Background()))
}
