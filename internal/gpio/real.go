//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// RealLED drives an LED from actual hardware using the Linux GPIO character device.
type RealLED struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealLED requests pin as an output, initially off.
func NewRealLED(pin int) (*RealLED, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pin, err)
	}

	return &RealLED{chip: chip, line: line}, nil
}

// Set drives the LED line high for on, low for off.
func (l *RealLED) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set LED: %w", err)
	}
	return nil
}

// Close turns the LED off and releases GPIO resources.
// The pin is reconfigured to input with pull-down (Pi boot default) so the
// LED stays dark across reboots.
func (l *RealLED) Close() error {
	var err error
	if l.line != nil {
		if e := l.line.SetValue(0); e != nil {
			err = multierr.Append(err, fmt.Errorf("clear LED: %w", e))
		}
		if e := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); e != nil {
			err = multierr.Append(err, fmt.Errorf("reconfigure LED pin: %w", e))
		}
		if e := l.line.Close(); e != nil {
			err = multierr.Append(err, fmt.Errorf("close LED pin: %w", e))
		}
	}
	if l.chip != nil {
		if e := l.chip.Close(); e != nil {
			err = multierr.Append(err, fmt.Errorf("close chip: %w", e))
		}
	}
	return err
}
