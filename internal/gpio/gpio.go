// Package gpio drives the actuator's two digital outputs.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer sets a pair of digital outputs.
type Writer interface {
	// Set drives output A and output B. true = high.
	Set(a, b bool) error

	// Close drives both outputs low and releases the lines.
	Close() error
}

// Default line offsets (BCM numbering).
const (
	PinA = 23
	PinB = 24
)
