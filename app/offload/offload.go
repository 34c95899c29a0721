// Package offload installs tenant offload-chain selections into the NIC.
package offload

import (
	"github.com/panicnic/panicrx/app/rxconfig"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/nic"
	"go.uber.org/zap"
)

var logger = logging.New("offload")

// QueueDepth is the offload queue depth requested for every tenant.
const QueueDepth = 26

// ChainID returns the effective offload-chain ID of a tenant.
// It is the last stage of the offload chain, or 0 if the chain is empty.
func ChainID(t rxconfig.TenantConfig) int {
	if n := len(t.OffloadChain); n > 0 {
		return t.OffloadChain[n-1]
	}
	return 0
}

// Rule constructs the offload rule of a tenant.
func Rule(t rxconfig.TenantConfig) nic.OffloadRule {
	return nic.OffloadRule{
		Tenant:     t.ID,
		Chain:      ChainID(t),
		QueueDepth: QueueDepth,
		Priority:   t.Priority,
		Port:       t.Port,
	}
}

// Provision installs a tenant's offload rule.
// Failure is reported as *nic.DeviceError.
func Provision(dev nic.Device, t rxconfig.TenantConfig) error {
	rule := Rule(t)
	if e := dev.ConfigureOffload(rule); e != nil {
		return &nic.DeviceError{Op: "offload", Tenant: t.ID, Err: e}
	}
	logger.Info("offload provisioned", append(rule.ZapFields(), zap.String("key", t.Key))...)
	return nil
}

// ProvisionAll provisions every tenant in configuration order.
// It stops at the first failure.
func ProvisionAll(dev nic.Device, tenants rxconfig.TenantList) error {
	for i, n := 0, tenants.Len(); i < n; i++ {
		if e := Provision(dev, tenants.At(i)); e != nil {
			logger.Error("offload provisioning failed", zap.Int("provisioned", i), zap.Error(e))
			return e
		}
	}
	return nil
}
