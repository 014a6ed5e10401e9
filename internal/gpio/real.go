//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// RealWriter drives two output lines on a GPIO character device.
type RealWriter struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealWriter requests pinA and pinB on chipName as outputs, initially low.
func NewRealWriter(chipName string, pinA, pinB int) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	lines, err := chip.RequestLines([]int{pinA, pinB}, gpiocdev.AsOutput(0, 0), gpiocdev.WithConsumer("env-sensor"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output pins %d,%d: %w", pinA, pinB, err)
	}

	return &RealWriter{chip: chip, lines: lines}, nil
}

// Set drives both outputs in a single request.
func (w *RealWriter) Set(a, b bool) error {
	if err := w.lines.SetValues([]int{level(a), level(b)}); err != nil {
		return fmt.Errorf("set outputs: %w", err)
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}

// Close drives the outputs low, then returns the lines to input with
// pull-down (the Pi boot default) before releasing them.
func (w *RealWriter) Close() error {
	var err error
	if w.lines != nil {
		if e := w.lines.SetValues([]int{0, 0}); e != nil {
			err = multierr.Append(err, fmt.Errorf("drive outputs low: %w", e))
		}
		if e := w.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); e != nil {
			err = multierr.Append(err, fmt.Errorf("reconfigure pins: %w", e))
		}
		if e := w.lines.Close(); e != nil {
			err = multierr.Append(err, fmt.Errorf("close pins: %w", e))
		}
		w.lines = nil
	}
	if w.chip != nil {
		if e := w.chip.Close(); e != nil {
			err = multierr.Append(err, fmt.Errorf("close chip: %w", e))
		}
		w.chip = nil
	}
	return err
}
