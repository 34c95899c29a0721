// Package afpnic provides a NIC device backed by AF_PACKET sockets on a kernel network interface.
//
// The interface is either named directly or located from the PCI address via sysfs.
// Each receive queue is an AF_PACKET socket in a hash fanout group, so that the kernel spreads flows across queues.
// This driver is available on Linux only.
package afpnic

// DriverName is the name of the AF_PACKET driver.
const DriverName = "afpacket"
