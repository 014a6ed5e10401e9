package logic

import (
	"math"
	"strconv"
)

// Labels are the localized captions shown on the display.
type Labels struct {
	Temperature string
	Humidity    string
}

// DisplayLines renders a reading as the two display rows:
// temperature rounded to an integer, humidity to one decimal.
func DisplayLines(r Reading, l Labels) [2]string {
	return [2]string{
		l.Temperature + ": " + strconv.Itoa(int(math.Round(r.Temperature))) + " °C",
		l.Humidity + ": " + strconv.FormatFloat(r.Humidity, 'f', 1, 64) + " %",
	}
}

// RoundHumidity rounds humidity to the one-decimal precision used on the wire.
func RoundHumidity(h float64) float64 {
	return math.Round(h*10) / 10
}
