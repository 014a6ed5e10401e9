// Package config resolves the sensor node configuration from built-in
// defaults, an optional YAML file and command-line flags (highest priority).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Task names accepted in Tasks.
const (
	TaskLink      = "link"
	TaskSession   = "session"
	TaskTelemetry = "telemetry"
	TaskActuator  = "actuator"
)

var knownTasks = []string{TaskLink, TaskSession, TaskTelemetry, TaskActuator}

// Config is the resolved node configuration.
type Config struct {
	Network   Network   `yaml:"network"`
	Platform  Platform  `yaml:"platform"`
	Intervals Intervals `yaml:"intervals"`
	Sensor    Sensor    `yaml:"sensor"`
	Display   Display   `yaml:"display"`
	Actuator  Actuator  `yaml:"actuator"`
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
	Tasks     TaskList  `yaml:"tasks"`

	// File is the YAML file the config was loaded from, if any.
	File string `yaml:"-"`

	// PrintReading requests a single sensor read instead of running the tasks.
	PrintReading bool `yaml:"-"`
}

// Network holds the Wi-Fi credentials and interface.
type Network struct {
	Interface string `yaml:"interface"`
	SSID      string `yaml:"ssid"`
	Password  string `yaml:"password"`
}

// Platform holds the telemetry platform endpoint.
type Platform struct {
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`
	Token  string `yaml:"token"`
}

// Intervals are the task cadences.
type Intervals struct {
	LinkPoll     time.Duration `yaml:"link_poll"`
	LinkCheck    time.Duration `yaml:"link_check"`
	SessionRetry time.Duration `yaml:"session_retry"`
	Telemetry    time.Duration `yaml:"telemetry"`
}

// Sensor is the DHT20 location on the I2C bus.
type Sensor struct {
	Bus  string `yaml:"bus"` // periph bus name; empty selects the first bus
	Addr int    `yaml:"addr"`
}

// Display is the character LCD geometry and captions.
type Display struct {
	Addr             int    `yaml:"addr"`
	Cols             int    `yaml:"cols"`
	Rows             int    `yaml:"rows"`
	Greeting         string `yaml:"greeting"`
	TemperatureLabel string `yaml:"temperature_label"`
	HumidityLabel    string `yaml:"humidity_label"`
}

// Actuator is the GPIO output pair driven by the sequencer.
type Actuator struct {
	Chip string `yaml:"chip"`
	PinA int    `yaml:"pin_a"`
	PinB int    `yaml:"pin_b"`
}

// HTTP is the status server.
type HTTP struct {
	Addr string `yaml:"addr"` // empty disables
}

// Log configures the optional rotating log file.
type Log struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Network: Network{Interface: "wlan0"},
		Platform: Platform{
			Server: "app.coreiot.io",
			Port:   1883,
		},
		Intervals: Intervals{
			LinkPoll:     500 * time.Millisecond,
			LinkCheck:    5 * time.Second,
			SessionRetry: 5 * time.Second,
			Telemetry:    10 * time.Second,
		},
		Sensor: Sensor{Addr: 0x38},
		Display: Display{
			Addr:             0x21,
			Cols:             16,
			Rows:             2,
			Greeting:         "Hello!",
			TemperatureLabel: "Nhiệt độ",
			HumidityLabel:    "Độ ẩm",
		},
		Actuator: Actuator{Chip: "gpiochip0", PinA: 23, PinB: 24},
		HTTP:     HTTP{Addr: ":80"},
		Log:      Log{MaxSizeMB: 5, MaxBackups: 3, MaxAgeDays: 28},
		Tasks:    TaskList{TaskLink, TaskSession, TaskTelemetry},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.File = path
	return cfg, nil
}

// Parse resolves the configuration from command-line arguments.
// If -config names a file it is loaded first and every flag explicitly set
// on the command line is re-applied on top of it.
func Parse(name string, args []string) (Config, error) {
	cfg := Default()
	fs := NewFlagSet(name, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.File == "" {
		return cfg, cfg.Validate()
	}

	fileCfg, err := Load(cfg.File)
	if err != nil {
		return fileCfg, err
	}
	overlay := NewFlagSet(name, &fileCfg)
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if err := overlay.Set(f.Name, f.Value.String()); err != nil && setErr == nil {
			setErr = fmt.Errorf("apply flag -%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return fileCfg, setErr
	}
	return fileCfg, fileCfg.Validate()
}

// NewFlagSet binds every configurable field to a flag on a new FlagSet.
// Flag defaults are the current values in cfg.
func NewFlagSet(name string, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&cfg.File, "config", cfg.File, "YAML config file")

	fs.StringVar(&cfg.Network.Interface, "iface", cfg.Network.Interface, "Wi-Fi interface")
	fs.StringVar(&cfg.Network.SSID, "ssid", cfg.Network.SSID, "Wi-Fi network name")
	fs.StringVar(&cfg.Network.Password, "wifi-password", cfg.Network.Password, "Wi-Fi password")

	fs.StringVar(&cfg.Platform.Server, "server", cfg.Platform.Server, "Telemetry platform MQTT host")
	fs.IntVar(&cfg.Platform.Port, "port", cfg.Platform.Port, "Telemetry platform MQTT port")
	fs.StringVar(&cfg.Platform.Token, "token", cfg.Platform.Token, "Device access token")

	fs.DurationVar(&cfg.Intervals.LinkPoll, "link-poll", cfg.Intervals.LinkPoll, "Link state poll interval while associating")
	fs.DurationVar(&cfg.Intervals.LinkCheck, "link-check", cfg.Intervals.LinkCheck, "Link re-check interval once connected")
	fs.DurationVar(&cfg.Intervals.SessionRetry, "session-retry", cfg.Intervals.SessionRetry, "Session keeper tick interval")
	fs.DurationVar(&cfg.Intervals.Telemetry, "interval", cfg.Intervals.Telemetry, "Telemetry send interval")

	fs.StringVar(&cfg.Sensor.Bus, "i2c-bus", cfg.Sensor.Bus, "I2C bus name (empty for first available)")
	fs.IntVar(&cfg.Sensor.Addr, "sensor-addr", cfg.Sensor.Addr, "DHT20 I2C address")

	fs.IntVar(&cfg.Display.Addr, "lcd-addr", cfg.Display.Addr, "LCD backpack I2C address")
	fs.IntVar(&cfg.Display.Cols, "lcd-cols", cfg.Display.Cols, "LCD columns")
	fs.IntVar(&cfg.Display.Rows, "lcd-rows", cfg.Display.Rows, "LCD rows")
	fs.StringVar(&cfg.Display.Greeting, "greeting", cfg.Display.Greeting, "Text shown at startup")
	fs.StringVar(&cfg.Display.TemperatureLabel, "temperature-label", cfg.Display.TemperatureLabel, "Temperature caption")
	fs.StringVar(&cfg.Display.HumidityLabel, "humidity-label", cfg.Display.HumidityLabel, "Humidity caption")

	fs.StringVar(&cfg.Actuator.Chip, "gpio-chip", cfg.Actuator.Chip, "GPIO chip for the actuator outputs")
	fs.IntVar(&cfg.Actuator.PinA, "pin-a", cfg.Actuator.PinA, "GPIO line for output A")
	fs.IntVar(&cfg.Actuator.PinB, "pin-b", cfg.Actuator.PinB, "GPIO line for output B")

	fs.StringVar(&cfg.HTTP.Addr, "http", cfg.HTTP.Addr, "HTTP status address (empty to disable)")

	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Rotating log file (empty logs to stderr only)")

	fs.BoolVar(&cfg.PrintReading, "print-reading", cfg.PrintReading, "Read the sensor once, print the reading and exit")

	fs.Var(&cfg.Tasks, "tasks", "Comma-separated tasks to run: link,session,telemetry,actuator")

	return fs
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	for _, name := range c.Tasks {
		if !isKnownTask(name) {
			return fmt.Errorf("%w: unknown task %q", ErrInvalid, name)
		}
	}
	if c.PrintReading {
		return nil
	}
	if c.Enabled(TaskLink) && c.Network.SSID == "" {
		return fmt.Errorf("%w: ssid required when the link task is enabled", ErrInvalid)
	}
	if c.Enabled(TaskSession) {
		if c.Platform.Token == "" {
			return fmt.Errorf("%w: token required when the session task is enabled", ErrInvalid)
		}
		if c.Platform.Server == "" {
			return fmt.Errorf("%w: server required when the session task is enabled", ErrInvalid)
		}
		if c.Platform.Port <= 0 || c.Platform.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Platform.Port)
		}
	}
	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"link_poll", c.Intervals.LinkPoll},
		{"link_check", c.Intervals.LinkCheck},
		{"session_retry", c.Intervals.SessionRetry},
		{"telemetry", c.Intervals.Telemetry},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			return fmt.Errorf("%w: interval %s must be positive, got %v", ErrInvalid, iv.name, iv.d)
		}
	}
	if c.Display.Cols <= 0 || c.Display.Rows <= 0 {
		return fmt.Errorf("%w: display geometry %dx%d", ErrInvalid, c.Display.Cols, c.Display.Rows)
	}
	return nil
}

// Enabled reports whether the named task is in the enabled set.
func (c Config) Enabled(task string) bool {
	for _, name := range c.Tasks {
		if name == task {
			return true
		}
	}
	return false
}

func isKnownTask(name string) bool {
	for _, k := range knownTasks {
		if k == name {
			return true
		}
	}
	return false
}

// TaskList is a set of task names. As a flag it takes a comma-separated list.
type TaskList []string

// String implements flag.Value.
func (t *TaskList) String() string {
	if t == nil {
		return ""
	}
	return strings.Join(*t, ",")
}

// Set implements flag.Value. It replaces the list rather than appending.
func (t *TaskList) Set(s string) error {
	var out TaskList
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	*t = out
	return nil
}
