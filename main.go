package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/blackandwhitetux/solafans-rs485/aggregate"
	"github.com/blackandwhitetux/solafans-rs485/config"
	"github.com/blackandwhitetux/solafans-rs485/logger"
	"github.com/blackandwhitetux/solafans-rs485/metrics"
	"github.com/blackandwhitetux/solafans-rs485/poller"
	"github.com/blackandwhitetux/solafans-rs485/publish"
	"github.com/blackandwhitetux/solafans-rs485/solafans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tarm/serial"
	"lib.hemtjan.st/client"
	"lib.hemtjan.st/device"
	"lib.hemtjan.st/transport/mqtt"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file, replaces the flags below when set")
	serialDevice := flag.String("device", "/dev/ttyUSB0", "Serial device")
	baudFlag := flag.Int("speed", 9600, "Baud rate of serial port")
	controllers := flag.String("controllers", "mppt_charger_a=1,mppt_charger_b=2", "Controllers on the serial device, as name=address")
	combinedName := flag.String("combined", "mppt_charger_combined", "Name of the combined sensors of the first two controllers, empty to disable")
	interval := flag.Duration("interval", time.Second, "Time between poll cycles")
	maxAttempts := flag.Int("max-attempts", 0, "Attempts per poll before giving up, 0 retries forever")
	sinkName := flag.String("sink", config.SinkHomeAssistant, "Where to publish: homeassistant or hemtjanst")
	haURL := flag.String("ha-url", "", "Home Assistant base URL")
	haToken := flag.String("ha-token", os.Getenv("HA_TOKEN"), "Home Assistant long-lived access token")
	topicPrefix := flag.String("topic", "solar", "Topic prefix of hemtjanst devices")
	metricsListen := flag.String("metrics", "", "Listen address for prometheus metrics, e.g. :9090")
	logLevel := flag.String("log-level", logger.InfoLevel, "Log level: debug, info, warn or error")

	mqFlags := mqtt.MustFlags(flag.String, flag.Bool)
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.New(logger.InfoLevel).Fatalw("error loading config", "path", *configPath, "err", err)
		}
	} else {
		cs, err := config.ParseControllers(*controllers)
		if err != nil {
			logger.New(logger.InfoLevel).Fatalw("invalid -controllers", "err", err)
		}
		cfg = &config.Config{
			LogLevel:      *logLevel,
			Interval:      *interval,
			MaxAttempts:   *maxAttempts,
			Sink:          *sinkName,
			HomeAssistant: config.HomeAssistantConfig{URL: *haURL, Token: *haToken},
			Hemtjanst:     config.HemtjanstConfig{TopicPrefix: *topicPrefix},
			Metrics:       config.MetricsConfig{Listen: *metricsListen},
			Buses: []config.BusConfig{{
				Device:      *serialDevice,
				Baud:        *baudFlag,
				Controllers: cs,
			}},
		}
		if *combinedName != "" && len(cs) >= 2 {
			cfg.Combined = &config.CombinedConfig{Name: *combinedName, A: cs[0].Name, B: cs[1].Name}
		}
	}
	config.Defaults(cfg)

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := config.Validate(cfg); err != nil {
		log.Fatalw("invalid configuration", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Listen != "" {
		go serveMetrics(ctx, cfg.Metrics.Listen, reg, log)
	}

	var sink publish.Sink
	switch cfg.Sink {
	case config.SinkHemtjanst:
		mq, err := mqtt.New(ctx, mqFlags())
		if err != nil {
			log.Fatalw("error connecting to mqtt", "err", err)
		}

		// Spawn a goroutine to detect MQTT errors and handle reconnect
		go func() {
			for {
				ok, err := mq.Start()
				if err != nil {
					log.Errorw("MQTT error", "err", err)
				}
				if !ok {
					log.Fatalw("MQTT connection closed")
				}
				time.Sleep(3 * time.Second)
				log.Infow("MQTT: reconnecting")
			}
		}()

		// Devices are announced with every feature they can report
		features := map[string][]string{}
		for _, b := range cfg.Buses {
			for _, c := range b.Controllers {
				features[c.Name] = publish.ReadingKeys()
			}
		}
		if cfg.Combined != nil {
			features[cfg.Combined.Name] = publish.CombinedKeys()
		}

		sink = publish.NewHemtjanst(cfg.Hemtjanst.TopicPrefix, func(info *device.Info) (publish.UpdateFunc, error) {
			d, err := client.NewDevice(info, mq)
			if err != nil {
				return nil, err
			}
			return func(feature, value string) error {
				return d.Feature(feature).Update(value)
			}, nil
		}, features)
	default:
		sink, err = publish.NewHomeAssistant(publish.HomeAssistantConfig{
			URL:     cfg.HomeAssistant.URL,
			Token:   cfg.HomeAssistant.Token,
			Timeout: cfg.HomeAssistant.Timeout,
		})
		if err != nil {
			log.Fatalw("error creating home assistant sink", "err", err)
		}
	}
	pub := publish.NewPublisher(sink, cfg.PublishConcurrency, log, m)

	// Controllers taking part in the combined sensors, by slot
	agg := aggregate.New()
	slots := map[string]int{}
	if cfg.Combined != nil {
		slots[cfg.Combined.A] = aggregate.A
		slots[cfg.Combined.B] = aggregate.B
	}

	// handle gets called with each reading and returns once every sensor
	// has been published
	handle := func(ctx context.Context, c poller.Controller, r *solafans.Reading) {
		sensors := publish.ReadingSensors(c.Name, r)

		if slot, ok := slots[c.Name]; ok {
			comb, err := agg.Observe(slot, r)
			if err != nil {
				log.Errorw("error combining readings", "controller", c.Name, "err", err)
			} else {
				if comb.PowerOK {
					m.Combined("power", comb.Power)
				}
				if comb.EnergyOK {
					m.Combined("energy", comb.Energy)
				}
				sensors = append(sensors, publish.CombinedSensors(cfg.Combined.Name, comb)...)
			}
		}

		log.Debugw("reading",
			"controller", c.Name,
			"battery_voltage", r.BatteryVoltage,
			"charging_current", r.ChargingCurrent,
			"total_kwh", r.TotalEnergyGenerated,
		)
		pub.Publish(ctx, sensors)
	}

	var wg sync.WaitGroup
	for _, bc := range cfg.Buses {
		bus, closeBus, err := openBus(bc, cfg, log, m)
		if err != nil {
			log.Fatalw("error opening bus", "device", bc.Device, "err", err)
		}
		defer closeBus()

		wg.Add(1)
		go func(dev string) {
			defer wg.Done()
			log.Infow("polling", "device", dev)
			bus.Run(ctx, handle)
		}(bc.Device)
	}

	wg.Wait()
	log.Infow("shut down")
}

// openBus opens the serial device of bc. Failing to open it is fatal to
// the caller since nothing can be polled without it.
func openBus(bc config.BusConfig, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*poller.Bus, func(), error) {
	s, err := serial.OpenPort(&serial.Config{
		Name:        bc.Device,
		Baud:        bc.Baud,
		ReadTimeout: bc.ReadTimeout,
		Size:        8,
	})
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := s.Close(); err != nil {
			log.Warnw("error closing serial device", "device", bc.Device, "err", err)
		}
	}

	p, err := poller.New(s, poller.Config{MaxAttempts: cfg.MaxAttempts}, log.With("device", bc.Device), m)
	if err != nil {
		closer()
		return nil, nil, err
	}

	cs := make([]poller.Controller, 0, len(bc.Controllers))
	for _, c := range bc.Controllers {
		cs = append(cs, poller.Controller{Name: c.Name, Address: c.Address})
	}
	bus, err := poller.NewBus(bc.Device, p, cfg.Interval, cs)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return bus, closer, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("metrics server failed", "err", err)
	}
}
