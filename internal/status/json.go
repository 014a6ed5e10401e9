package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Link          string       `json:"link"`
	Session       string       `json:"session"`
	Phase         string       `json:"phase,omitempty"`
	Reading       *ReadingJSON `json:"reading,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingJSON is the JSON representation of the last reading.
type ReadingJSON struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Valid       bool    `json:"valid"`
	Timestamp   string  `json:"timestamp"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Readings        int `json:"readings"`
	SensorFailures  int `json:"sensor_failures"`
	Published       int `json:"published"`
	Dropped         int `json:"dropped"`
	SessionConnects int `json:"session_connects"`
	LinkDrops       int `json:"link_drops"`
}

// NetworkJSON is the JSON representation of the link metadata.
type NetworkJSON struct {
	MAC     string `json:"mac"`
	RSSI    int    `json:"rssi"`
	Channel int    `json:"channel"`
	BSSID   string `json:"bssid"`
	IP      string `json:"ip"`
	SSID    string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TelemetryMs    int64    `json:"telemetry_ms"`
	LinkCheckMs    int64    `json:"link_check_ms"`
	SessionRetryMs int64    `json:"session_retry_ms"`
	Server         string   `json:"server"`
	Port           int      `json:"port"`
	SSID           string   `json:"ssid,omitempty"`
	HTTPAddr       string   `json:"http_addr"`
	Tasks          []string `json:"tasks"`
}

// Build converts a snapshot to its JSON shape.
func Build(snap Snapshot) StatusJSON {
	inner := StatusInner{
		Link:          snap.Link.String(),
		Session:       snap.Session.String(),
		Phase:         snap.Phase,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Counts: CountsJSON{
			Readings:        snap.Counts.Readings,
			SensorFailures:  snap.Counts.SensorFailures,
			Published:       snap.Counts.Published,
			Dropped:         snap.Counts.Dropped,
			SessionConnects: snap.Counts.SessionConnects,
			LinkDrops:       snap.Counts.LinkDrops,
		},
		Config: ConfigJSON{
			TelemetryMs:    snap.Config.TelemetryMs,
			LinkCheckMs:    snap.Config.LinkCheckMs,
			SessionRetryMs: snap.Config.SessionRetryMs,
			Server:         snap.Config.Server,
			Port:           snap.Config.Port,
			SSID:           snap.Config.SSID,
			HTTPAddr:       snap.Config.HTTPAddr,
			Tasks:          snap.Config.Tasks,
		},
	}
	if snap.HasRead {
		inner.Reading = &ReadingJSON{
			Temperature: snap.Reading.Temperature,
			Humidity:    snap.Reading.Humidity,
			Valid:       snap.Reading.Valid,
			Timestamp:   snap.Reading.Time.UTC().Format(time.RFC3339),
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			MAC:     snap.Network.MACAddress,
			RSSI:    snap.Network.SignalStrength,
			Channel: snap.Network.Channel,
			BSSID:   snap.Network.BSSID,
			IP:      snap.Network.LocalAddress,
			SSID:    snap.Network.SSID,
		}
	}
	return StatusJSON{Status: inner}
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Build(snap), "", "  ")
	return data
}
