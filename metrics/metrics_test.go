package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorRegistersWithTwoIndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	assert.NotPanics(t, func() {
		NewCollector("cellular", reg1)
		NewCollector("cellular", reg2)
	})
}

func TestNilCollectorMethodsAreNoOps(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.CommandSent()
		c.CommandCompleted("ok", 0.1)
		c.URCDispatched("+CREG")
		c.LineUndefined()
		c.RegistrationEvent("cs", "changed")
	})
}

func TestCollectorRecordsAgainstItsRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("cellular", reg)

	c.CommandSent()
	c.CommandCompleted("ok", 0.05)
	c.URCDispatched("+CREG")
	c.LineUndefined()
	c.RegistrationEvent("ps", "changed")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
