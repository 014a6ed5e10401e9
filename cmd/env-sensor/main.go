// Command env-sensor samples a DHT20, shows the reading on a character LCD
// and publishes telemetry to a ThingsBoard-compatible platform over MQTT,
// while supervising the Wi-Fi link and the platform session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sweeney/env-sensor/internal/bus"
	"github.com/sweeney/env-sensor/internal/config"
	"github.com/sweeney/env-sensor/internal/device"
	"github.com/sweeney/env-sensor/internal/display"
	"github.com/sweeney/env-sensor/internal/gpio"
	"github.com/sweeney/env-sensor/internal/link"
	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/mqtt"
	"github.com/sweeney/env-sensor/internal/sensor"
	"github.com/sweeney/env-sensor/internal/status"
	"github.com/sweeney/env-sensor/internal/web"
)

func main() {
	cfg, err := config.Parse("env-sensor", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	logFile := setupLogging(cfg.Log, os.Stderr)
	if logFile != nil {
		defer logFile.Close()
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// setupLogging tees the standard logger into a rotating file when one is
// configured. The returned closer is nil when logging to console only.
func setupLogging(l config.Log, console io.Writer) io.Closer {
	if l.File == "" {
		log.SetOutput(console)
		return nil
	}
	lj := &lumberjack.Logger{
		Filename:   l.File,
		MaxSize:    l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(console, lj))
	return lj
}

func run(cfg config.Config) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init host drivers: %w", err)
	}
	i2cBus, err := i2creg.Open(cfg.Sensor.Bus)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", cfg.Sensor.Bus, err)
	}
	shared := bus.New(i2cBus)
	defer shared.Close()

	dht := sensor.NewDHT20(shared, uint16(cfg.Sensor.Addr))

	// Print reading mode
	if cfg.PrintReading {
		return printReading(dht, os.Stdout)
	}

	lcd := display.NewLCD(shared, uint16(cfg.Display.Addr), cfg.Display.Cols, cfg.Display.Rows)

	var outputs gpio.Writer
	if cfg.Enabled(config.TaskActuator) {
		w, err := gpio.NewRealWriter(cfg.Actuator.Chip, cfg.Actuator.PinA, cfg.Actuator.PinB)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		outputs = w
	}

	var driver link.Driver
	if cfg.Enabled(config.TaskLink) || cfg.Enabled(config.TaskSession) {
		d, err := link.NewRealDriver(cfg.Network.Interface)
		if err != nil {
			return fmt.Errorf("init link driver: %w", err)
		}
		driver = d
	}

	client := mqtt.NewRealClient("")
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	rt, err := device.New(cfg, device.Deps{
		Display: lcd,
		Sensor:  dht,
		Link:    driver,
		Client:  client,
		Outputs: outputs,
		Tracker: tracker,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http: server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http: status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: tasks=%s interval=%v server=%s:%d client=%s",
		strings.Join(rt.Tasks(), ","), cfg.Intervals.Telemetry, cfg.Platform.Server, cfg.Platform.Port, client.ClientID())

	rt.Start(ctx)
	<-ctx.Done()
	log.Printf("shutting down")
	return rt.Wait()
}

// printReading reads the sensor once and writes the reading to w.
func printReading(s sensor.Sensor, w io.Writer) error {
	if err := s.Begin(); err != nil {
		return fmt.Errorf("sensor begin: %w", err)
	}
	if err := s.Read(); err != nil {
		return fmt.Errorf("sensor read: %w", err)
	}
	_, err := fmt.Fprintf(w, "Temperature: %.2f °C, Humidity: %.1f %%\n",
		s.Temperature(), logic.RoundHumidity(s.Humidity()))
	return err
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		TelemetryMs:    cfg.Intervals.Telemetry.Milliseconds(),
		LinkCheckMs:    cfg.Intervals.LinkCheck.Milliseconds(),
		SessionRetryMs: cfg.Intervals.SessionRetry.Milliseconds(),
		Server:         cfg.Platform.Server,
		Port:           cfg.Platform.Port,
		SSID:           cfg.Network.SSID,
		HTTPAddr:       cfg.HTTP.Addr,
		Tasks:          append([]string(nil), cfg.Tasks...),
	}
}
