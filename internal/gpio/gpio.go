// Package gpio drives the success LED with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// LED is a single on/off indicator.
type LED interface {
	// Set drives the LED on or off.
	Set(on bool) error

	// Close releases GPIO resources and leaves the LED off.
	Close() error
}

// DefaultPinLED is the BCM pin of the success LED.
const DefaultPinLED = 17

// NopLED is used when no LED is wired.
type NopLED struct{}

func (NopLED) Set(bool) error { return nil }
func (NopLED) Close() error   { return nil }
