// Package capture coordinates camera acquisition and live speech
// recognition during a session, mirroring recognized text into the
// answer ledger.
package capture

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Camera acquires and releases the video device shown during practice.
// Camera failures never block a session; audio capture carries the answers.
type Camera interface {
	Acquire(ctx context.Context) error
	Release()
}

// NopCamera is used when no camera device is configured.
type NopCamera struct{}

func (NopCamera) Acquire(context.Context) error { return nil }
func (NopCamera) Release()                      {}

// DeviceCamera holds an open handle on a video device node for the session's
// lifetime, so the candidate sees the in-use indicator light while answering.
type DeviceCamera struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewDeviceCamera builds a camera for a device node such as /dev/video0.
func NewDeviceCamera(path string) *DeviceCamera {
	return &DeviceCamera{path: path}
}

// Acquire opens the device node. Already-acquired is a no-op.
func (c *DeviceCamera) Acquire(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file != nil {
		return nil
	}
	file, err := os.OpenFile(c.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open camera %s: %w", c.path, err)
	}
	c.file = file
	return nil
}

// Release closes the device node. Safe to call repeatedly.
func (c *DeviceCamera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file != nil {
		_ = c.file.Close()
		c.file = nil
	}
}
