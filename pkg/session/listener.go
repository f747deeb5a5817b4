package session

// Listener receives the block callbacks of a running session.
//
// Both methods are called on the real-time thread of the backend, never on
// the thread which controls the session. They must return within the time
// budget of one block (block size / sample rate seconds); a slower listener
// produces audible dropouts. They must not block, allocate excessively or call
// back into the Session.
type Listener interface {
	// OnInput is called when a block of captured input is available. The
	// buffers of inputs already contain the samples.
	OnInput(timestamp float64, inputs BoundLets)

	// OnOutput is called when a block of output must be produced. Every
	// channel buffer of outputs has to be filled completely before returning.
	OnOutput(timestamp float64, outputs BoundLets)
}

// Adapter implements Listener with methods that do nothing. Embed it to
// implement only one of the callbacks.
type Adapter struct{}

func (Adapter) OnInput(float64, BoundLets) {}

func (Adapter) OnOutput(float64, BoundLets) {}

// ListenerFuncs adapts plain functions to Listener. Nil functions are skipped.
type ListenerFuncs struct {
	Input  func(timestamp float64, inputs BoundLets)
	Output func(timestamp float64, outputs BoundLets)
}

func (this ListenerFuncs) OnInput(timestamp float64, inputs BoundLets) {
	if v := this.Input; v != nil {
		v(timestamp, inputs)
	}
}

func (this ListenerFuncs) OnOutput(timestamp float64, outputs BoundLets) {
	if v := this.Output; v != nil {
		v(timestamp, outputs)
	}
}

// Listeners calls every contained listener in order.
type Listeners []Listener

func (this Listeners) OnInput(timestamp float64, inputs BoundLets) {
	for _, v := range this {
		if v != nil {
			v.OnInput(timestamp, inputs)
		}
	}
}

func (this Listeners) OnOutput(timestamp float64, outputs BoundLets) {
	for _, v := range this {
		if v != nil {
			v.OnOutput(timestamp, outputs)
		}
	}
}
