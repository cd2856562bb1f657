package engine

// Observer follows the progress of a run.
type Observer interface {
	// OnStart receives the planned sample count, num_steps * batch_size.
	OnStart(total int)
	// OnProgress receives the number of samples a step added.
	OnProgress(added int)
	// OnStepError is called for every failed completion call.
	OnStepError(step, attempt int, err error)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) OnStart(int)                {}
func (NopObserver) OnProgress(int)             {}
func (NopObserver) OnStepError(int, int, error) {}
