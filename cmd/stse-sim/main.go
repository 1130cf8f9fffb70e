// Command stse-sim serves a simulated secure element over the bridge
// protocol so that stse-prov can be exercised without hardware.
//
// Usage:
//
//	stse-sim [flags]
//
// Flags:
//
//	-listen string        Bridge listen address (default ":7420")
//	-profile string       Built-in profile name or YAML file (default "stsafe-a120")
//	-device-type string   Device type reported to clients (default "STSAFE-A120")
//	-serial string        Serial number advertised over mDNS
//	-mdns                 Advertise the bridge over mDNS
//	-interface string     Network interface for mDNS (default: all)
//	-lock-tables          Start with both table change rights spent
//	-state string         Load device state from, and save it to, a JSON file
//	-protocol-log string  Write bus frames to a trace file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Serve the default device and advertise it
//	stse-sim -mdns -serial SIM0001
//
//	# Serve a device whose tables can no longer be changed
//	stse-sim -lock-tables -log-level debug
//
//	# Keep written tables and locked slots across restarts
//	stse-sim -state sim-state.json
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/stse-tools/stse-go/internal/cli"
	"github.com/stse-tools/stse-go/pkg/bridge"
	"github.com/stse-tools/stse-go/pkg/discovery"
	"github.com/stse-tools/stse-go/pkg/persistence"
	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/profile"
	"github.com/stse-tools/stse-go/pkg/sim"
)

// Config holds the simulator command configuration.
type Config struct {
	ListenAddr  string
	Profile     string
	DeviceType  string
	Serial      string
	MDNS        bool
	Interface   string
	LockTables  bool
	StateFile   string
	ProtocolLog string
	LogLevel    string
}

var config Config

func init() {
	flag.StringVar(&config.ListenAddr, "listen", fmt.Sprintf(":%d", discovery.DefaultPort), "Bridge listen address")
	flag.StringVar(&config.Profile, "profile", profile.DefaultName, "Built-in profile name or YAML file")
	flag.StringVar(&config.DeviceType, "device-type", "STSAFE-A120", "Device type reported to clients")
	flag.StringVar(&config.Serial, "serial", "", "Serial number advertised over mDNS")
	flag.BoolVar(&config.MDNS, "mdns", false, "Advertise the bridge over mDNS")
	flag.StringVar(&config.Interface, "interface", "", "Network interface for mDNS (default: all)")
	flag.BoolVar(&config.LockTables, "lock-tables", false, "Start with both table change rights spent")
	flag.StringVar(&config.StateFile, "state", "", "Load device state from, and save it to, a JSON file")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "Write bus frames to a trace file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	loggers, err := cli.NewLoggers(os.Stderr, config.LogLevel)
	if err != nil {
		return err
	}
	logger := loggers.Logger

	prof, err := profile.Load(config.Profile)
	if err != nil {
		return err
	}

	simConfig := sim.Config{
		Address: prof.Device.Address,
		Opcodes: prof.Opcodes(),
		Logger:  logger,
	}
	if config.LockTables {
		simConfig.ChangeRights = &policy.ChangeRights{}
	}
	device, err := sim.New(simConfig)
	if err != nil {
		return fmt.Errorf("create simulator: %w", err)
	}

	if config.StateFile != "" {
		store := persistence.NewDeviceStateStore(config.StateFile)
		state, err := store.Load()
		if err != nil {
			return err
		}
		if state != nil {
			if err := device.Restore(state); err != nil {
				return err
			}
			logger.Info("device state restored", "file", store.Path(), "saved_at", state.SavedAt)
		}
		defer func() {
			if err := store.Save(device.Snapshot()); err != nil {
				logger.Error("save device state", "error", err)
				return
			}
			logger.Info("device state saved", "file", store.Path())
		}()
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

	server, err := bridge.NewServer(bridge.ServerConfig{
		ListenAddr:     config.ListenAddr,
		Connector:      device,
		DeviceType:     config.DeviceType,
		ProtocolLogger: trace,
		LoggerFactory:  loggers.Factory,
	})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	logger.Info("simulator serving",
		"addr", server.Addr().String(),
		"profile", prof.Name,
		"commands", len(prof.Commands),
		"device_address", fmt.Sprintf("0x%02X", prof.Device.Address))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if config.MDNS {
		advConfig := discovery.DefaultAdvertiserConfig()
		advConfig.Interface = config.Interface
		advConfig.LoggerFactory = loggers.Factory
		advertiser := discovery.NewAdvertiser(advConfig)
		defer advertiser.StopAll()

		name, err := advertiser.Advertise(ctx, &discovery.BridgeInfo{
			DeviceType:    config.DeviceType,
			DeviceAddress: prof.Device.Address,
			BusID:         prof.Device.Bus,
			Serial:        config.Serial,
			Port:          listenPort(server.Addr()),
		})
		if err != nil {
			return fmt.Errorf("advertise: %w", err)
		}
		logger.Info("advertising", "instance", name, "service", discovery.ServiceType)
	}

	<-ctx.Done()
	logger.Info("shutting down", "transfers", device.Transfers())
	return nil
}

func listenPort(addr net.Addr) uint16 {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return discovery.DefaultPort
}
