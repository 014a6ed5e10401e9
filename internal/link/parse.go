package link

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// iwLink is the subset of `iw dev <iface> link` output we publish.
type iwLink struct {
	BSSID     string
	SSID      string
	Frequency int // MHz
}

// parseIWLink parses `iw dev <iface> link`. A "Not connected." report
// yields the zero value.
func parseIWLink(out string) iwLink {
	var l iwLink
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "Connected to "):
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				l.BSSID = strings.ToUpper(fields[2])
			}
		case strings.HasPrefix(line, "SSID:"):
			l.SSID = strings.TrimSpace(strings.TrimPrefix(line, "SSID:"))
		case strings.HasPrefix(line, "freq:"):
			f := strings.TrimSpace(strings.TrimPrefix(line, "freq:"))
			// Newer iw prints fractional MHz, e.g. "2437.0".
			if i := strings.IndexByte(f, '.'); i >= 0 {
				f = f[:i]
			}
			l.Frequency, _ = strconv.Atoi(f)
		}
	}
	return l
}

// parseWirelessLevel returns the signal level in dBm for iface from the
// contents of /proc/net/wireless.
func parseWirelessLevel(dump, iface string) (int, error) {
	lines := strings.Split(strings.TrimSpace(dump), "\n")
	for i, line := range lines {
		// Two header lines.
		if i < 2 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		if strings.TrimRight(fields[0], ":") != iface {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimRight(fields[3], "."), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid wifi level reading %q: %w", fields[3], err)
		}
		return int(level), nil
	}
	return 0, fmt.Errorf("interface %s not in wireless table", iface)
}

// frequencyToChannel maps a Wi-Fi centre frequency in MHz to its channel
// number. Unknown bands return 0.
func frequencyToChannel(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz < 2484:
		return (mhz - 2407) / 5
	case mhz >= 5160 && mhz <= 5885:
		return (mhz - 5000) / 5
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	}
	return 0
}
