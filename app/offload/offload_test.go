package offload_test

import (
	"errors"
	"testing"

	"github.com/panicnic/panicrx/app/offload"
	"github.com/panicnic/panicrx/app/rxconfig"
	"github.com/panicnic/panicrx/nic"
	"github.com/panicnic/panicrx/nic/memnic"
)

var (
	tenantA = rxconfig.TenantConfig{Key: "A", ID: 0, Priority: 1, OffloadChain: []int{3, 5, 7}, Endpoint: "10.0.0.1", Port: 9000}
	tenantB = rxconfig.TenantConfig{Key: "B", ID: 1, Priority: 2, OffloadChain: []int{}, Endpoint: "10.0.0.2", Port: 9001}
)

func TestChainID(t *testing.T) {
	assert, _ := makeAR(t)

	assert.Equal(7, offload.ChainID(tenantA))
	assert.Equal(0, offload.ChainID(tenantB))
	assert.Equal(0, offload.ChainID(rxconfig.TenantConfig{}))
	assert.Equal(4, offload.ChainID(rxconfig.TenantConfig{OffloadChain: []int{4}}))
}

func TestProvisionAll(t *testing.T) {
	assert, require := makeAR(t)

	dev := memnic.New(nic.Config{NumQueues: 2})
	require.NoError(offload.ProvisionAll(dev, rxconfig.MakeTenantList(tenantA, tenantB)))

	assert.Equal(map[int]nic.OffloadRule{
		0: {Tenant: 0, Chain: 7, QueueDepth: 26, Priority: 1, Port: 9000},
		1: {Tenant: 1, Chain: 0, QueueDepth: 26, Priority: 2, Port: 9001},
	}, dev.Offload())
}

func TestIdempotent(t *testing.T) {
	assert, require := makeAR(t)

	dev := memnic.New(nic.Config{NumQueues: 2})
	require.NoError(offload.Provision(dev, tenantA))
	first := dev.Offload()
	require.NoError(offload.Provision(dev, tenantA))
	assert.Equal(first, dev.Offload())
}

func TestProvisionFailure(t *testing.T) {
	assert, _ := makeAR(t)

	dev := memnic.New(nic.Config{NumQueues: 3})
	cause := errors.New("engine busy")
	dev.FailOffload(0, cause)

	tenantC := rxconfig.TenantConfig{Key: "C", ID: 2, Port: 9002}
	e := offload.ProvisionAll(dev, rxconfig.MakeTenantList(tenantB, tenantA, tenantC))
	var de *nic.DeviceError
	if assert.ErrorAs(e, &de) {
		assert.Equal("offload", de.Op)
		assert.Equal(0, de.Tenant)
		assert.ErrorIs(e, cause)
	}

	// B was provisioned before A failed; C was not attempted
	rules := dev.Offload()
	assert.Contains(rules, 1)
	assert.NotContains(rules, 2)
	assert.Len(rules, 1)
}
