package session

import (
	"fmt"

	"github.com/blaubaer/audio-session/pkg/audio"
)

// BoundLet is a Let of an initialized session together with the buffers of
// its channels.
type BoundLet struct {
	audio.Let
	buffers []*audio.ChannelBuffer
}

// Channel returns the buffer of the i-th channel of this let.
func (this *BoundLet) Channel(i int) *audio.ChannelBuffer {
	return this.buffers[i]
}

type BoundLets []*BoundLet

func (this BoundLets) Lets() audio.Lets {
	result := make(audio.Lets, len(this))
	for i, v := range this {
		result[i] = v.Let
	}
	return result
}

func (this BoundLets) Channels() (result int) {
	for _, v := range this {
		result += v.Channels()
	}
	return
}

// Buffers returns the buffers of all channels of all lets in order.
func (this BoundLets) Buffers() []*audio.ChannelBuffer {
	result := make([]*audio.ChannelBuffer, 0, this.Channels())
	for _, v := range this {
		result = append(result, v.buffers...)
	}
	return result
}

func bindLets(lets audio.Lets, regions [][]byte, blockSize int) (BoundLets, error) {
	if expected := lets.Channels(); len(regions) != expected {
		return nil, fmt.Errorf("backend provided %d channel regions but %d channels were requested", len(regions), expected)
	}

	result := make(BoundLets, len(lets))
	offset := 0
	for i, let := range lets {
		bound := &BoundLet{
			Let:     let,
			buffers: make([]*audio.ChannelBuffer, let.Channels()),
		}
		for c := range bound.buffers {
			buffer, err := audio.NewChannelBuffer(regions[offset])
			if err != nil {
				return nil, fmt.Errorf("cannot bind channel %d of let %v: %w", c, let, err)
			}
			if buffer.Capacity() != blockSize {
				return nil, fmt.Errorf("channel %d of let %v holds %d samples but block size is %d", c, let, buffer.Capacity(), blockSize)
			}
			bound.buffers[c] = buffer
			offset++
		}
		result[i] = bound
	}

	return result, nil
}
