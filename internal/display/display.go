// Package display drives the character LCD.
// The real driver is an HD44780 behind a PCF8574 I2C backpack.
// The fake driver records what would be shown.
package display

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Display is a line-oriented character display.
// Println writes text on the current row and moves to the next one.
type Display interface {
	Init() error
	Backlight() error
	Clear() error
	Println(text string) error
}

// romDegree is the degree sign in the HD44780 A00 character ROM.
const romDegree = 0xDF

// Transliterate maps text onto the HD44780 A00 ROM. Diacritics are
// stripped, the degree sign is mapped to its ROM code and anything else
// outside ASCII becomes '?'.
func Transliterate(text string) []byte {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, text)
	if err != nil {
		plain = text
	}
	out := make([]byte, 0, len(plain))
	for _, r := range plain {
		switch {
		case r == '°':
			out = append(out, romDegree)
		case r == 'đ':
			out = append(out, 'd')
		case r == 'Đ':
			out = append(out, 'D')
		case r < 0x80:
			out = append(out, byte(r))
		default:
			out = append(out, '?')
		}
	}
	return out
}
