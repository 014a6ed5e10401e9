package display

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// PCF8574 pin assignment on the common backpack.
const (
	pinRS        = 0x01
	pinEN        = 0x04
	pinBacklight = 0x08
)

// HD44780 instructions.
const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // increment, no shift
	cmdDisplayOn   = 0x0C // display on, cursor off, blink off
	cmdFunction4x2 = 0x28 // 4-bit bus, two lines, 5x8 font
	cmdSetDDRAM    = 0x80
)

var rowOffsets = []byte{0x00, 0x40, 0x14, 0x54}

// LCD is an HD44780 character display on a PCF8574 I2C expander.
type LCD struct {
	dev   *i2c.Dev
	cols  int
	rows  int
	sleep func(time.Duration)

	mu        sync.Mutex
	backlight byte
	row       int
}

// NewLCD creates a driver for a cols x rows display at addr on bus.
func NewLCD(bus i2c.Bus, addr uint16, cols, rows int) *LCD {
	if rows > len(rowOffsets) {
		rows = len(rowOffsets)
	}
	return &LCD{
		dev:   &i2c.Dev{Bus: bus, Addr: addr},
		cols:  cols,
		rows:  rows,
		sleep: time.Sleep,
	}
}

// String implements fmt.Stringer.
func (l *LCD) String() string {
	return fmt.Sprintf("LCD{%s %dx%d}", l.dev, l.cols, l.rows)
}

// Init runs the 4-bit initialisation sequence and clears the display.
func (l *LCD) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sleep(50 * time.Millisecond)
	for _, d := range []time.Duration{4500 * time.Microsecond, 4500 * time.Microsecond, 150 * time.Microsecond} {
		if err := l.nibble(0x30); err != nil {
			return fmt.Errorf("lcd: init: %w", err)
		}
		l.sleep(d)
	}
	if err := l.nibble(0x20); err != nil {
		return fmt.Errorf("lcd: init: %w", err)
	}
	for _, c := range []byte{cmdFunction4x2, cmdDisplayOn, cmdClear, cmdEntryMode} {
		if err := l.command(c); err != nil {
			return fmt.Errorf("lcd: init: %w", err)
		}
		if c == cmdClear {
			l.sleep(2 * time.Millisecond)
		}
	}
	l.row = 0
	return nil
}

// Backlight switches the backlight on.
func (l *LCD) Backlight() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backlight = pinBacklight
	if err := l.dev.Tx([]byte{l.backlight}, nil); err != nil {
		return fmt.Errorf("lcd: backlight: %w", err)
	}
	return nil
}

// Clear blanks the display and homes the cursor to the first row.
func (l *LCD) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.command(cmdClear); err != nil {
		return fmt.Errorf("lcd: clear: %w", err)
	}
	l.sleep(2 * time.Millisecond)
	l.row = 0
	return nil
}

// Println writes text on the current row, padded or truncated to the
// display width, and advances to the next row, wrapping to the top.
func (l *LCD) Println(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := Transliterate(text)
	if len(line) > l.cols {
		line = line[:l.cols]
	}
	buf := l.frame(cmdSetDDRAM|rowOffsets[l.row], 0)
	for i := 0; i < l.cols; i++ {
		c := byte(' ')
		if i < len(line) {
			c = line[i]
		}
		buf = append(buf, l.frame(c, pinRS)...)
	}
	if err := l.dev.Tx(buf, nil); err != nil {
		return fmt.Errorf("lcd: println: %w", err)
	}
	l.row = (l.row + 1) % l.rows
	return nil
}

func (l *LCD) command(c byte) error {
	return l.dev.Tx(l.frame(c, 0), nil)
}

// nibble clocks in the high nibble of v alone. Used before 4-bit mode is set.
func (l *LCD) nibble(v byte) error {
	hi := v & 0xF0
	return l.dev.Tx([]byte{hi | l.backlight | pinEN, hi | l.backlight}, nil)
}

// frame returns the expander writes that clock one byte in as two nibbles.
func (l *LCD) frame(v, mode byte) []byte {
	hi := v&0xF0 | mode | l.backlight
	lo := v<<4&0xF0 | mode | l.backlight
	return []byte{hi | pinEN, hi, lo | pinEN, lo}
}
