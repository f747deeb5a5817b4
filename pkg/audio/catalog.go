package audio

import (
	"errors"
	"fmt"
	"sync"
)

var ErrCatalogNotInitialized = errors.New("catalog not initialized")

// Catalog lists the devices of a Backend. Every call of ListDevices queries
// the backend again and returns a fresh, fully populated snapshot.
type Catalog struct {
	Backend Backend

	initialized bool
	mutex       sync.RWMutex
}

func NewCatalog(backend Backend) *Catalog {
	return &Catalog{Backend: backend}
}

func (this *Catalog) Initialize() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.initialized {
		return nil
	}
	if this.Backend == nil {
		return fmt.Errorf("no backend configured")
	}

	if err := this.Backend.Initialize(); err != nil {
		return fmt.Errorf("cannot initialize backend: %w", err)
	}

	this.initialized = true
	return nil
}

func (this *Catalog) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return nil
	}

	this.initialized = false
	if err := this.Backend.Dispose(); err != nil {
		return fmt.Errorf("cannot dispose backend: %w", err)
	}

	return nil
}

func (this *Catalog) ListDevices() (Devices, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	if !this.initialized {
		return nil, ErrCatalogNotInitialized
	}

	descriptors, err := this.Backend.EnumerateDevices()
	if err != nil {
		return nil, fmt.Errorf("cannot enumerate devices: %w", err)
	}

	result := make(Devices, 0, len(descriptors))
	for _, descriptor := range descriptors {
		device, err := this.introspectDevice(descriptor)
		if err != nil {
			return nil, err
		}
		result = append(result, device)
	}

	return result, nil
}

func (this *Catalog) introspectDevice(descriptor DeviceDescriptor) (*Device, error) {
	id := descriptor.Id
	minBufferSize, maxBufferSize, err := this.Backend.QueryBufferSizeBounds(id)
	if err != nil {
		return nil, fmt.Errorf("cannot get buffer size bounds of device %d: %w", id, err)
	}
	if minBufferSize <= 0 || maxBufferSize < minBufferSize {
		return nil, fmt.Errorf("illegal buffer size bounds of device %d: [%d, %d]", id, minBufferSize, maxBufferSize)
	}
	currentBufferSize, err := this.Backend.QueryCurrentBufferSize(id)
	if err != nil {
		return nil, fmt.Errorf("cannot get current buffer size of device %d: %w", id, err)
	}
	currentSampleRate, err := this.Backend.QueryCurrentSampleRate(id)
	if err != nil {
		return nil, fmt.Errorf("cannot get current sample rate of device %d: %w", id, err)
	}

	device := &Device{
		id:                id,
		name:              descriptor.Name,
		manufacturer:      descriptor.Manufacturer,
		minBufferSize:     minBufferSize,
		maxBufferSize:     maxBufferSize,
		currentBufferSize: currentBufferSize,
		currentSampleRate: currentSampleRate,
	}

	if device.inputs, err = this.introspectLets(device, DirectionInput, descriptor.Inputs); err != nil {
		return nil, err
	}
	if device.outputs, err = this.introspectLets(device, DirectionOutput, descriptor.Outputs); err != nil {
		return nil, err
	}

	return device, nil
}

func (this *Catalog) introspectLets(device *Device, direction Direction, descriptors []LetDescriptor) (result Lets, _ error) {
	for _, descriptor := range descriptors {
		if descriptor.Channels <= 0 {
			return nil, fmt.Errorf("%v let %d of device %v has no channels", direction, descriptor.Index, device)
		}
		rates, err := this.Backend.QueryLetSampleRates(device.id, descriptor.Index, direction)
		if err != nil {
			return nil, fmt.Errorf("cannot get sample rates of %v let %d of device %v: %w", direction, descriptor.Index, device, err)
		}
		result = result.With(Let{
			device:        device,
			index:         descriptor.Index,
			channelOffset: descriptor.ChannelOffset,
			name:          descriptor.Name,
			direction:     direction,
			channels:      descriptor.Channels,
			sampleRates:   NewSampleRates(rates...),
		})
	}
	return
}
