package nic

import (
	"errors"
	"fmt"
)

// ErrClosed indicates the device has been closed.
var ErrClosed = errors.New("device closed")

// ErrQueue indicates the queue index is out of range.
var ErrQueue = errors.New("queue out of range")

// DeviceError indicates a device initialization or provisioning failure.
type DeviceError struct {
	Op     string // "init" or "offload"
	Tenant int    // tenant ID, or -1
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Tenant < 0 {
		return fmt.Sprintf("device %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("device %s tenant %d: %v", e.Op, e.Tenant, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
