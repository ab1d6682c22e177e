package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Validations.WithLabelValues("accepted").Inc()
	m.Bindings.Inc()
	m.LicensesCreated.WithLabelValues("created").Add(2)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LicensesCreated.WithLabelValues("created")))

	assert.Panics(t, func() { New(reg) })
}

func TestNewWithoutRegistry(t *testing.T) {
	m := New(nil)
	m.StoreErrors.WithLabelValues("lookup").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("lookup")))
}
