// Command stse-prov provisions the command access conditions, command
// encryption and symmetric key slots of a secure element.
//
// The device is reached through a bridge (-bridge or -discover) or an
// in-process simulator (-sim). The run reads the current policy, writes
// the profile tables, reads the policy back, reports the differences and
// writes the key slot provisioning fields.
//
// Usage:
//
//	stse-prov [flags]
//
// Flags:
//
//	-bridge string        Bridge address host:port
//	-discover             Find the bridge over mDNS
//	-serial string        Only accept a discovered bridge with this serial number
//	-sim                  Use the in-process simulator
//	-profile string       Built-in profile name or YAML file (default "stsafe-a120")
//	-list-profiles        List the built-in profiles and exit
//	-skip-slots           Do not provision key slots
//	-interactive          Start the interactive shell
//	-json                 Write the report as JSON lines
//	-no-color             Disable ANSI colors in the report
//	-protocol-log string  Write a protocol trace file
//	-log-level string     Log level: debug, info, warn, error (default "warn")
//
// The exit status is 1 when the run fails and 2 when it completes with
// failed key slots.
//
// Examples:
//
//	# Provision against the simulator
//	stse-prov -sim
//
//	# Provision the first bridge found on the network, keeping a trace
//	stse-prov -discover -protocol-log run.stlog
//
//	# Step through a run by hand
//	stse-prov -bridge 192.168.1.20:7420 -interactive
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/stse-tools/stse-go/cmd/stse-prov/interactive"
	"github.com/stse-tools/stse-go/internal/cli"
	"github.com/stse-tools/stse-go/pkg/bridge"
	"github.com/stse-tools/stse-go/pkg/discovery"
	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/profile"
	"github.com/stse-tools/stse-go/pkg/report"
	"github.com/stse-tools/stse-go/pkg/service"
	"github.com/stse-tools/stse-go/pkg/sim"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// Config holds the provisioning command configuration.
type Config struct {
	Bridge       string
	Discover     bool
	Serial       string
	Sim          bool
	Profile      string
	ListProfiles bool
	SkipSlots    bool
	Interactive  bool
	JSON         bool
	NoColor      bool
	ProtocolLog  string
	LogLevel     string
}

var config Config

// errSlotsFailed signals a completed run with failed key slots.
var errSlotsFailed = errors.New("one or more key slots failed")

func init() {
	flag.StringVar(&config.Bridge, "bridge", "", "Bridge address host:port")
	flag.BoolVar(&config.Discover, "discover", false, "Find the bridge over mDNS")
	flag.StringVar(&config.Serial, "serial", "", "Only accept a discovered bridge with this serial number")
	flag.BoolVar(&config.Sim, "sim", false, "Use the in-process simulator")
	flag.StringVar(&config.Profile, "profile", profile.DefaultName, "Built-in profile name or YAML file")
	flag.BoolVar(&config.ListProfiles, "list-profiles", false, "List the built-in profiles and exit")
	flag.BoolVar(&config.SkipSlots, "skip-slots", false, "Do not provision key slots")
	flag.BoolVar(&config.Interactive, "interactive", false, "Start the interactive shell")
	flag.BoolVar(&config.JSON, "json", false, "Write the report as JSON lines")
	flag.BoolVar(&config.NoColor, "no-color", false, "Disable ANSI colors in the report")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "Write a protocol trace file")
	flag.StringVar(&config.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	err := run()
	switch {
	case err == nil:
	case errors.Is(err, errSlotsFailed):
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func validateConfig() error {
	sources := 0
	for _, set := range []bool{config.Bridge != "", config.Discover, config.Sim} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("exactly one of -bridge, -discover or -sim is required")
	}
	if config.JSON && config.Interactive {
		return errors.New("-json cannot be combined with -interactive")
	}
	return nil
}

func run() error {
	if config.ListProfiles {
		names, err := profile.Available()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	if err := validateConfig(); err != nil {
		return err
	}

	loggers, err := cli.NewLoggers(os.Stderr, config.LogLevel)
	if err != nil {
		return err
	}
	logger := loggers.Logger

	prof, err := profile.Load(config.Profile)
	if err != nil {
		return err
	}
	hcfg, err := prof.HandlerConfig()
	if err != nil {
		return err
	}

	trace, err := cli.OpenProtocolLog(config.ProtocolLog, logger, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := trace.Close(); err != nil {
			logger.Warn("protocol log", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := uuid.NewString()
	connector, endpoint, err := newConnector(ctx, prof, loggers, trace, runID)
	if err != nil {
		return err
	}

	pcfg, err := service.ConfigFromProfile(prof)
	if err != nil {
		return err
	}
	pcfg.SkipSlots = config.SkipSlots
	pcfg.Logger = logger
	pcfg.ProtocolLogger = trace
	pcfg.RunID = runID
	pcfg.Endpoint = endpoint
	pcfg.OnStateChange = func(from, to service.RunState) {
		logger.Debug("state change", "from", from.String(), "to", to.String())
	}

	if config.Interactive {
		return runInteractive(ctx, cancel, connector, hcfg, prof, pcfg)
	}

	pcfg.Reporter = newReporter(os.Stdout, prof)
	prov, err := service.NewProvisioner(pcfg)
	if err != nil {
		return err
	}

	result, err := prov.Run(ctx, connector, hcfg)
	if err != nil {
		return err
	}
	if w, ok := pcfg.Reporter.(interface{ Err() error }); ok && w.Err() != nil {
		return fmt.Errorf("write report: %w", w.Err())
	}
	if result.Summary.SlotsFailed > 0 {
		return fmt.Errorf("%w: %d of %d", errSlotsFailed, result.Summary.SlotsFailed, len(result.Slots))
	}
	return nil
}

func newReporter(w io.Writer, prof *profile.Profile) report.Reporter {
	if config.JSON {
		return report.NewJSONReporter(w)
	}
	return report.NewTextReporter(w, report.Options{
		Color: !config.NoColor,
		Names: prof.Names(),
	})
}

// newConnector returns the connector selected by the flags and the
// endpoint name used in trace events.
func newConnector(ctx context.Context, prof *profile.Profile, loggers cli.Loggers, trace log.Logger, runID string) (stse.Connector, string, error) {
	switch {
	case config.Sim:
		device, err := sim.New(sim.Config{
			Address: prof.Device.Address,
			Opcodes: prof.Opcodes(),
			Logger:  loggers.Logger,
		})
		if err != nil {
			return nil, "", err
		}
		return tracingConnector(device, trace, runID, "sim"), "sim", nil

	case config.Discover:
		address, err := discover(ctx, loggers)
		if err != nil {
			return nil, "", err
		}
		return newDialer(address, loggers, trace, runID), address, nil

	default:
		return newDialer(config.Bridge, loggers, trace, runID), config.Bridge, nil
	}
}

// tracingConnector records the bus frames of an in-process device.
func tracingConnector(connector stse.Connector, trace log.Logger, runID, endpoint string) stse.Connector {
	return stse.ConnectorFunc(func(ctx context.Context, cfg stse.HandlerConfig) (stse.Bus, error) {
		bus, err := connector.Initialize(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return stse.NewTracingBus(bus, trace, runID, endpoint), nil
	})
}

func newDialer(address string, loggers cli.Loggers, trace log.Logger, runID string) *bridge.Dialer {
	return bridge.NewDialer(bridge.DialerConfig{
		Address:        address,
		ProtocolLogger: trace,
		RunID:          runID,
		LoggerFactory:  loggers.Factory,
	})
}

func discover(ctx context.Context, loggers cli.Loggers) (string, error) {
	bcfg := discovery.DefaultBrowserConfig()
	bcfg.LoggerFactory = loggers.Factory
	browser := discovery.NewBrowser(bcfg)

	var filter discovery.FilterFunc
	if config.Serial != "" {
		filter = discovery.FilterBySerial(config.Serial)
	}

	svc, err := browser.FindBridge(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("discover bridge: %w", err)
	}
	loggers.Logger.Info("bridge discovered",
		"instance", svc.InstanceName,
		"address", svc.Address(),
		"device_type", svc.Info.DeviceType)
	return svc.Address(), nil
}

func runInteractive(ctx context.Context, cancel context.CancelFunc, connector stse.Connector, hcfg stse.HandlerConfig, prof *profile.Profile, pcfg service.Config) error {
	handler, err := stse.Open(ctx, connector, hcfg, stse.Options{
		Logger:         pcfg.Logger,
		ProtocolLogger: pcfg.ProtocolLogger,
		RunID:          pcfg.RunID,
		Endpoint:       pcfg.Endpoint,
	})
	if err != nil {
		return err
	}
	defer handler.Close()

	// The shell owns the terminal; the reporter writes through it.
	var out shellWriter
	pcfg.Reporter = newReporter(&out, prof)
	prov, err := service.NewProvisioner(pcfg)
	if err != nil {
		return err
	}

	shell, err := interactive.New(interactive.Config{
		Device:        handler,
		HandlerConfig: hcfg,
		Profile:       prof,
		Provisioner:   prov,
		Reporter:      pcfg.Reporter,
	})
	if err != nil {
		return err
	}
	out.w = shell.Stdout()

	shell.Run(ctx, cancel)
	return nil
}

// shellWriter forwards to the shell output once the shell exists.
type shellWriter struct {
	w io.Writer
}

func (s *shellWriter) Write(p []byte) (int, error) {
	if s.w == nil {
		return os.Stdout.Write(p)
	}
	return s.w.Write(p)
}
