package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes the registry's current metric state to path in the
// Prometheus text exposition format, atomically via a temp file rename.
// Intended for the node-exporter textfile collector.
func WriteTextfile(path string, registry *prometheus.Registry) error {
	if registry == nil {
		return nil
	}

	err := prometheus.WriteToTextfile(path, registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}

	return nil
}
