package observability_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HewlettPackard/zing-stats/pkg/observability"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zingstats_pages_fetched_total",
		Help: "Result pages fetched from a backend.",
	})
	require.NoError(t, registry.Register(counter))
	counter.Add(3)

	path := filepath.Join(t.TempDir(), "zing_stats.prom")

	require.NoError(t, observability.WriteTextfile(path, registry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "zingstats_pages_fetched_total 3")
}

func TestWriteTextfile_NilRegistryIsNoop(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "zing_stats.prom")

	require.NoError(t, observability.WriteTextfile(path, nil))
	assert.NoFileExists(t, path)
}
