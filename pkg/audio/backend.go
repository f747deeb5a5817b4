package audio

import (
	"fmt"
)

// Backend is the native audio subsystem. It enumerates devices, answers
// capability queries, opens and closes sessions and delivers blocks on its
// own real-time thread.
type Backend interface {
	Initialize() error
	Dispose() error

	EnumerateDevices() ([]DeviceDescriptor, error)
	QueryLetSampleRates(device DeviceId, letIndex int, direction Direction) ([]float64, error)
	QueryBufferSizeBounds(device DeviceId) (min, max int, _ error)
	QueryCurrentBufferSize(device DeviceId) (int, error)
	QueryCurrentSampleRate(device DeviceId) (float64, error)

	// OpenSession is always called with at least one non-empty side.
	OpenSession(OpenRequest, BlockReceiver) (OpenedSession, error)
	CloseSession(Handle) error
	// SetRunning(h, false) must not return before the last block callback
	// of this session has returned.
	SetRunning(h Handle, running bool) error
}

// BlockReceiver is called by the backend on its real-time thread once per
// block. Before OnInput the input regions contain the captured samples;
// after OnOutput the backend consumes the output regions.
type BlockReceiver interface {
	OnInput(timestamp float64)
	OnOutput(timestamp float64)
}

// Handle identifies an open backend session. Its content is backend private.
type Handle any

type DeviceDescriptor struct {
	Id           DeviceId
	Name         string
	Manufacturer string
	Inputs       []LetDescriptor
	Outputs      []LetDescriptor
}

type LetDescriptor struct {
	Index         int
	ChannelOffset int
	Name          string
	Direction     Direction
	Channels      int
}

type OpenRequest struct {
	Inputs         []LetDescriptor
	InputChannels  int
	InputDevice    DeviceId
	Outputs        []LetDescriptor
	OutputChannels int
	OutputDevice   DeviceId
	BlockSize      int
	SampleRate     float64
}

func (this OpenRequest) HasInput() bool {
	return len(this.Inputs) > 0
}

func (this OpenRequest) HasOutput() bool {
	return len(this.Outputs) > 0
}

// OpenedSession is the result of Backend.OpenSession. The regions hold one
// entry per channel in the order of the requested lets and their channels;
// each region is BlockSize native-endian float32 samples long and stays valid
// until CloseSession.
type OpenedSession struct {
	Handle        Handle
	InputRegions  [][]byte
	OutputRegions [][]byte
}

// GroupChannels splits the channels of a device into lets of width channels.
// The last let holds the rest.
func GroupChannels(channels, width int, direction Direction) []LetDescriptor {
	var result []LetDescriptor
	if width <= 0 {
		return nil
	}
	for offset := 0; offset < channels; offset += width {
		n := min(width, channels-offset)
		name := fmt.Sprintf("%d", offset+1)
		if n > 1 {
			name = fmt.Sprintf("%d-%d", offset+1, offset+n)
		}
		result = append(result, LetDescriptor{
			Index:         len(result),
			ChannelOffset: offset,
			Name:          name,
			Direction:     direction,
			Channels:      n,
		})
	}
	return result
}

// ChannelMap returns for every channel of lets, in order, its channel index
// on the device.
func ChannelMap(lets []LetDescriptor) []int {
	var result []int
	for _, l := range lets {
		for c := 0; c < l.Channels; c++ {
			result = append(result, l.ChannelOffset+c)
		}
	}
	return result
}
