package audio

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const SampleSize = 4

// NativeByteOrder is the byte order in which backends place samples into the
// raw regions.
var NativeByteOrder binary.ByteOrder = func() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}()

// ChannelBuffer is a fixed capacity float32 view on a raw region of one
// channel. The view shares the memory of the region: the backend refills the
// region every block and the view always shows the current content. A view
// is only meaningful between two callbacks and must not be retained after the
// session was uninitialized.
type ChannelBuffer struct {
	region  []byte
	samples []float32
}

func NewChannelBuffer(region []byte) (*ChannelBuffer, error) {
	if len(region) == 0 {
		return nil, fmt.Errorf("empty channel region")
	}
	if len(region)%SampleSize != 0 {
		return nil, fmt.Errorf("channel region of %d bytes is not a multiple of %d", len(region), SampleSize)
	}
	p := unsafe.Pointer(unsafe.SliceData(region))
	if uintptr(p)%unsafe.Alignof(float32(0)) != 0 {
		return nil, fmt.Errorf("channel region is not aligned for float32 samples")
	}
	return &ChannelBuffer{
		region:  region,
		samples: unsafe.Slice((*float32)(p), len(region)/SampleSize),
	}, nil
}

// NewRegion allocates a zeroed, aligned region for the given amount of samples.
func NewRegion(samples int) []byte {
	if samples <= 0 {
		return nil
	}
	buf := make([]float32, samples)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(buf))), samples*SampleSize)
}

// NewRegions allocates one region of blockSize samples per channel.
func NewRegions(channels, blockSize int) [][]byte {
	result := make([][]byte, channels)
	for i := range result {
		result[i] = NewRegion(blockSize)
	}
	return result
}

// NewChannelBuffers wraps every region.
func NewChannelBuffers(regions [][]byte) ([]*ChannelBuffer, error) {
	result := make([]*ChannelBuffer, len(regions))
	for i, region := range regions {
		buffer, err := NewChannelBuffer(region)
		if err != nil {
			return nil, fmt.Errorf("cannot wrap region of channel %d: %w", i, err)
		}
		result[i] = buffer
	}
	return result, nil
}

// Samples returns the view. Writes go directly into the region.
func (this *ChannelBuffer) Samples() []float32 {
	return this.samples
}

// Capacity in samples, equal to the block size of the session.
func (this *ChannelBuffer) Capacity() int {
	return len(this.samples)
}

func (this *ChannelBuffer) Region() []byte {
	return this.region
}

// Fill writes v into every sample.
func (this *ChannelBuffer) Fill(v float32) {
	for i := range this.samples {
		this.samples[i] = v
	}
}

// CopyFrom copies as many samples as fit and returns the number copied.
func (this *ChannelBuffer) CopyFrom(in []float32) int {
	return copy(this.samples, in)
}
