package common

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrBlockTooLong  = errors.New("block too long")
	ErrStopIteration = errors.New("stop iteration")
)

// NewRingBlockBuffer creates a buffer holding up to maxBlocks blocks of up to
// maxBlockLength samples each. All memory is allocated here, Push never
// allocates.
func NewRingBlockBuffer(maxBlocks, maxBlockLength uint32) *RingBlockBuffer {
	blocks := make([][]float32, maxBlocks)
	for i := range blocks {
		blocks[i] = make([]float32, maxBlockLength)
	}
	return &RingBlockBuffer{
		blocks:         blocks,
		blockLengths:   make([]int, maxBlocks),
		blocksCapacity: int(maxBlocks),
		blockCapacity:  int(maxBlockLength),
		notify:         make(chan struct{}, 1),
	}
}

// RingBlockBuffer hands blocks of samples from one real-time producer to one
// consumer goroutine. The producer never waits: if the buffer is full or the
// consumer currently holds the lock, the block is dropped and counted.
type RingBlockBuffer struct {
	blocks         [][]float32
	blockLengths   []int
	blocksCapacity int
	blockCapacity  int

	blocksOffset int
	blocksLength int

	dropped atomic.Uint64
	notify  chan struct{}
	scratch []float32
	mutex   sync.Mutex
}

// Push copies block into the buffer. It returns false if the block was
// dropped.
func (this *RingBlockBuffer) Push(block []float32) (bool, error) {
	if len(block) > this.blockCapacity {
		return false, ErrBlockTooLong
	}
	if !this.mutex.TryLock() {
		this.dropped.Add(1)
		return false, nil
	}
	defer this.mutex.Unlock()

	if this.blocksLength >= this.blocksCapacity {
		this.dropped.Add(1)
		return false, nil
	}

	i := (this.blocksOffset + this.blocksLength) % this.blocksCapacity
	this.blockLengths[i] = copy(this.blocks[i], block)
	this.blocksLength++

	select {
	case this.notify <- struct{}{}:
	default:
	}

	return true, nil
}

// Notify fires at least once after one or more blocks were pushed.
func (this *RingBlockBuffer) Notify() <-chan struct{} {
	return this.notify
}

func (this *RingBlockBuffer) NumberOfBlocks() uint32 {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	return uint32(this.blocksLength)
}

func (this *RingBlockBuffer) Dropped() uint64 {
	return this.dropped.Load()
}

type BlockConsumer func(uint32, []float32) error

// ConsumeBlocks removes the currently buffered blocks, oldest first, and
// hands them to consumer. The lock is not held while consumer runs, so the
// producer is not starved by a slow consumer. The slice passed to consumer is
// only valid during the call. Returning ErrStopIteration stops without error;
// the current block is removed anyway. Only one goroutine may consume.
func (this *RingBlockBuffer) ConsumeBlocks(consumer BlockConsumer) error {
	if this.scratch == nil {
		this.scratch = make([]float32, this.blockCapacity)
	}
	for i := uint32(0); ; i++ {
		n, ok := this.pop(this.scratch)
		if !ok {
			return nil
		}
		if err := consumer(i, this.scratch[:n]); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
}

func (this *RingBlockBuffer) pop(into []float32) (int, bool) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.blocksLength <= 0 {
		return 0, false
	}
	slot := this.blocksOffset
	this.blocksOffset = (this.blocksOffset + 1) % this.blocksCapacity
	this.blocksLength--

	return copy(into, this.blocks[slot][:this.blockLengths[slot]]), true
}
