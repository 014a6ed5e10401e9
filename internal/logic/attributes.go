package logic

// Attribute keys published once per session establishment.
const (
	AttrMACAddress = "macAddress"
	AttrRSSI       = "rssi"
	AttrChannel    = "channel"
	AttrBSSID      = "bssid"
	AttrLocalIP    = "localIp"
	AttrSSID       = "ssid"
)

// NetworkInfo is the link metadata the attributes are computed from.
type NetworkInfo struct {
	MACAddress     string
	SignalStrength int // dBm
	Channel        int
	BSSID          string
	LocalAddress   string
	SSID           string
}

// DeviceAttributes returns the fixed, ordered attribute set for a session.
// The slice always has exactly six entries.
func DeviceAttributes(info NetworkInfo) []Attribute {
	return []Attribute{
		{Key: AttrMACAddress, Value: info.MACAddress},
		{Key: AttrRSSI, Value: info.SignalStrength},
		{Key: AttrChannel, Value: info.Channel},
		{Key: AttrBSSID, Value: info.BSSID},
		{Key: AttrLocalIP, Value: info.LocalAddress},
		{Key: AttrSSID, Value: info.SSID},
	}
}
