package log

import "time"

// MaxFrameDataSize caps the frame bytes stored in a FrameEvent.
const MaxFrameDataSize = 4096

// NewFrameEvent builds a bus-layer event for a raw frame.
func NewFrameEvent(runID string, dir Direction, data []byte) Event {
	frame := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameDataSize {
		frame.Data = append([]byte(nil), data[:MaxFrameDataSize]...)
		frame.Truncated = true
	} else {
		frame.Data = append([]byte(nil), data...)
	}
	return Event{
		Timestamp: time.Now(),
		RunID:     runID,
		Direction: dir,
		Layer:     LayerBus,
		Category:  CategoryMessage,
		Frame:     frame,
	}
}

// NewStateEvent builds a service-layer state change event.
func NewStateEvent(runID, oldState, newState, reason string) Event {
	return Event{
		Timestamp: time.Now(),
		RunID:     runID,
		Layer:     LayerService,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
}

// NewErrorEvent builds an error event. code is omitted when negative.
func NewErrorEvent(runID string, layer Layer, context string, err error, code int) Event {
	data := &ErrorEventData{
		Layer:   layer,
		Message: err.Error(),
		Context: context,
	}
	if code >= 0 {
		data.Code = &code
	}
	return Event{
		Timestamp: time.Now(),
		RunID:     runID,
		Layer:     layer,
		Category:  CategoryError,
		Error:     data,
	}
}
