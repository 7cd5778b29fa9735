// Command coldroom-ctl drives a single refrigeration unit: three
// temperature probes, a setpoint potentiometer, two buttons, four relays,
// two indicator lamps, two character LCDs, a local HTTPS API, remote mTLS
// telemetry, and structured event/conditions logs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/coldroom/coldroom-ctl/internal/alarm"
	"github.com/coldroom/coldroom-ctl/internal/buttons"
	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/display"
	"github.com/coldroom/coldroom-ctl/internal/gpio"
	"github.com/coldroom/coldroom-ctl/internal/httpapi"
	"github.com/coldroom/coldroom-ctl/internal/indicator"
	"github.com/coldroom/coldroom-ctl/internal/logging"
	"github.com/coldroom/coldroom-ctl/internal/runtime"
	"github.com/coldroom/coldroom-ctl/internal/sensors"
	"github.com/coldroom/coldroom-ctl/internal/supervisor"
	"github.com/coldroom/coldroom-ctl/internal/telemetry"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

func main() {
	configPath := flag.String("config", "/etc/coldroom/config.env", "path to the dotenv-style config file")
	logDir := flag.String("log-dir", "/var/log/coldroom", "directory for event and conditions logs")
	demo := flag.Bool("demo", false, "run the simulated sensor/actuator loop instead of real hardware")
	flag.BoolVar(demo, "d", false, "shorthand for --demo")
	localBus := flag.String("local-bus", "tcp://localhost:1883", "MQTT broker address for the local telemetry fan-out (empty disables it)")

	flag.Parse()

	if err := run(*configPath, *logDir, *demo, *localBus); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath, logDir string, demo bool, localBus string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logHandle, err := logging.New(logDir, cfg.GetInt("debug.code", 1) != 0)
	if err != nil {
		return fmt.Errorf("open logs: %w", err)
	}

	w := world.New(time.Now())
	w.DemoMode.Store(demo)

	if !demo {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("init periph host: %w", err)
		}
	}

	alarmTask := alarm.NewTask(w, logHandle)

	buttonReader, relayWriter, err := openGPIO(demo)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}

	prober, err := openProber(demo, w, cfg)
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}

	sensorTask := sensors.NewTask(w, cfg, prober, relayWriter, logHandle)
	sensorTask.Alarms = alarmTask
	accumulator := runtime.NewAccumulator(w, cfg)
	sensorTask.OnRelayChange = accumulator.Observe

	buttonTask := buttons.NewTask(w, cfg, buttonReader, logHandle, noopHotspot{}, alarmTask)

	displayRenderer, err := openDisplay(demo)
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	displayTask := display.NewTask(w, displayRenderer)

	indicatorRenderer, err := openIndicator(demo)
	if err != nil {
		return fmt.Errorf("init indicator: %w", err)
	}
	indicatorTask := indicator.NewTask(w, indicatorRenderer)

	telemetryClient, err := openTelemetryClient(demo, cfg)
	if err != nil {
		return fmt.Errorf("init telemetry client: %w", err)
	}
	defer telemetryClient.Close()

	bus, err := openLocalBus(localBus)
	if err != nil {
		return fmt.Errorf("init local bus: %w", err)
	}
	defer bus.Close()

	telemetryTask := telemetry.NewTask(w, cfg, logHandle, telemetryClient, bus, wifiAlwaysUp{}, alarmTask)

	apiServer := httpapi.New(cfg.Get("api.listen"), w, cfg, logHandle, alarmTask)

	if err := publishStartupEvent(bus); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	supervise := func(name string, taskRun func(stop <-chan struct{}) error) {
		g.Go(func() error {
			return supervisor.Run(gctx, logHandle, name, func(ctx context.Context) error {
				return taskRun(ctx.Done())
			})
		})
	}

	supervise("sensors", sensorTask.Run)
	supervise("buttons", buttonTask.Run)
	supervise("alarm", alarmTask.Run)
	supervise("display", displayTask.Run)
	supervise("indicator", indicatorTask.Run)
	supervise("telemetry", telemetryTask.Run)

	g.Go(func() error {
		certFile, keyFile := cfg.Get("api.tls_cert"), cfg.Get("api.tls_key")
		var serveErr error
		if certFile != "" && keyFile != "" {
			serveErr = apiServer.ListenAndServeTLS(certFile, keyFile)
		} else {
			serveErr = apiServer.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("httpapi: %w", serveErr)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("shutting down")
		w.Running.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("httpapi shutdown: %v", err)
		}
		if err := publishShutdownEvent(bus); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		}
		_ = buttonReader.Close()
		_ = relayWriter.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

// openGPIO opens the button reader and relay writer, real hardware or an
// always-idle fake in demo mode.
func openGPIO(demo bool) (gpio.Reader, gpio.Writer, error) {
	if demo {
		return gpio.NewFakeReader([]gpio.Sample{{}}), gpio.NewFakeWriter(), nil
	}
	reader, err := gpio.NewRealReader(gpio.DefaultPinUp, gpio.DefaultPinDown, gpio.DefaultPinDefrost, gpio.DefaultPinAlarm)
	if err != nil {
		return nil, nil, fmt.Errorf("open button lines: %w", err)
	}
	writer, err := gpio.NewRealWriter(gpio.DefaultPinCompressor, gpio.DefaultPinFan, gpio.DefaultPinValve, gpio.DefaultPinElectricHeater)
	if err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("open relay lines: %w", err)
	}
	return reader, writer, nil
}

// openProber opens the sensor probe source: the demo simulator, driven by
// the current mode and setpoint, or the real one-wire probes named by the
// sensor.return/sensor.supply/sensor.coil config keys.
func openProber(demo bool, w *world.World, cfg *config.Config) (sensors.Prober, error) {
	if demo {
		return sensors.NewDemoProber(
			func() world.Mode { mode, _ := w.Status.Snapshot(); return mode },
			w.Setpoint.Load,
			time.Now,
		), nil
	}
	return sensors.NewRealProber(cfg.SensorReturnID(), cfg.SensorSupplyID(), cfg.SensorCoilID())
}

// openDisplay opens the two physical LCDs behind the TCA9548A mux, or two
// fake transports in demo mode.
func openDisplay(demo bool) (*display.Renderer, error) {
	if demo {
		return display.NewRenderer(display.NewFakeTransport(), display.NewFakeTransport(), noopNetInfo{}), nil
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("open i2c bus: %w", err)
	}

	lcd1, err := openLCD(bus, display.DefaultLCD1Channel)
	if err != nil {
		return nil, err
	}
	lcd2, err := openLCD(bus, display.DefaultLCD2Channel)
	if err != nil {
		return nil, err
	}
	return display.NewRenderer(lcd1, lcd2, noopNetInfo{}), nil
}

func openLCD(bus i2c.Bus, channel uint8) (*display.RealTransport, error) {
	lcd, err := display.NewRealTransport(bus, display.DefaultMuxAddr, channel, display.DefaultLCDAddr)
	if err != nil {
		return nil, fmt.Errorf("open lcd channel %d: %w", channel, err)
	}
	return lcd, nil
}

// openIndicator opens the WS2811 two-LED strip over SPI, or a fake
// transport in demo mode.
func openIndicator(demo bool) (*indicator.Renderer, error) {
	if demo {
		return indicator.NewRenderer(indicator.NewFakeTransport()), nil
	}

	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("open spi port: %w", err)
	}
	transport, err := indicator.NewRealTransport(port.(spi.Port))
	if err != nil {
		return nil, fmt.Errorf("init ws2811 transport: %w", err)
	}
	return indicator.NewRenderer(transport), nil
}

// openTelemetryClient opens the remote mTLS telemetry socket named by the
// client.host/client.port/client.cert/client.key/client.ca config keys, or
// a fake client that never sends anything in demo mode.
func openTelemetryClient(demo bool, cfg *config.Config) (telemetry.Client, error) {
	if demo {
		return telemetry.NewFakeClient(), nil
	}
	return telemetry.NewRealClient(
		cfg.Get("client.host"),
		cfg.GetInt("client.port", 8443),
		cfg.Get("client.cert"),
		cfg.Get("client.key"),
		cfg.Get("client.ca"),
	)
}

// openLocalBus opens the local MQTT-style fan-out, or a no-op in-process
// publisher when addr is empty.
func openLocalBus(addr string) (telemetry.Publisher, error) {
	if addr == "" {
		return &telemetry.FakePublisher{}, nil
	}
	return telemetry.NewRealPublisher(addr)
}

func publishStartupEvent(bus telemetry.Publisher) error {
	return bus.PublishSystem(telemetry.SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
		Retained:  true,
	})
}

func publishShutdownEvent(bus telemetry.Publisher) error {
	return bus.PublishSystem(telemetry.SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Retained:  true,
	})
}

// noopHotspot satisfies buttons.Hotspot: the Wi-Fi hotspot manager is an
// out-of-scope collaborator; requesting it here is a no-op rather
// than an error so the long-press gesture still completes.
type noopHotspot struct{}

func (noopHotspot) RequestStart() error { return nil }

// noopNetInfo satisfies display.NetInfo: the Wi-Fi/hotspot address
// reporting is part of the same out-of-scope collaborator.
type noopNetInfo struct{}

func (noopNetInfo) WLANAddr() string    { return "" }
func (noopNetInfo) HotspotAddr() string { return "" }

// wifiAlwaysUp satisfies telemetry.Connectivity: Wi-Fi connection status is
// an out-of-scope collaborator; the telemetry task is driven as if
// the network were always reachable, letting send failures themselves
// signal connectivity loss.
type wifiAlwaysUp struct{}

func (wifiAlwaysUp) Connected() bool { return true }
