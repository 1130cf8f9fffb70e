package stse

import (
	"context"

	"github.com/stse-tools/stse-go/pkg/changeright"
	"github.com/stse-tools/stse-go/pkg/log"
)

// Bus carries one command frame to the device and returns its response
// frame.
type Bus interface {
	Transfer(ctx context.Context, frame []byte) ([]byte, error)
	Close() error
}

// HandlerConfig holds the device selection and personalization passed to
// a Connector.
type HandlerConfig struct {
	DeviceAddress   uint8
	BusID           uint8
	Personalization changeright.Personalization
}

// DefaultHandlerConfig returns the STSAFE-A120 SPL05 evaluation board
// configuration.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		DeviceAddress:   DefaultDeviceAddress,
		BusID:           DefaultBusID,
		Personalization: changeright.SPL05,
	}
}

// Connector initializes the device and returns a Bus to it.
type Connector interface {
	Initialize(ctx context.Context, cfg HandlerConfig) (Bus, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, cfg HandlerConfig) (Bus, error)

// Initialize calls f.
func (f ConnectorFunc) Initialize(ctx context.Context, cfg HandlerConfig) (Bus, error) {
	return f(ctx, cfg)
}

// TracingBus records every frame crossing a Bus as a trace event.
type TracingBus struct {
	bus      Bus
	logger   log.Logger
	runID    string
	endpoint string
}

// NewTracingBus wraps bus so that frames are logged under runID.
func NewTracingBus(bus Bus, logger log.Logger, runID, endpoint string) *TracingBus {
	return &TracingBus{
		bus:      bus,
		logger:   log.OrNoop(logger),
		runID:    runID,
		endpoint: endpoint,
	}
}

// Transfer forwards frame and logs both directions.
func (b *TracingBus) Transfer(ctx context.Context, frame []byte) ([]byte, error) {
	b.log(log.DirectionOut, frame)
	rsp, err := b.bus.Transfer(ctx, frame)
	if err != nil {
		return nil, err
	}
	b.log(log.DirectionIn, rsp)
	return rsp, nil
}

// Close closes the wrapped bus.
func (b *TracingBus) Close() error {
	return b.bus.Close()
}

func (b *TracingBus) log(dir log.Direction, data []byte) {
	event := log.NewFrameEvent(b.runID, dir, data)
	event.Endpoint = b.endpoint
	b.logger.Log(event)
}

var _ Bus = (*TracingBus)(nil)
