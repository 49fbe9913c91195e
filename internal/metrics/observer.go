package metrics

// DispatchObserver receives outbox dispatcher outcomes.
type DispatchObserver interface {
	EventPublished()
	PublishFailed()
	EventDropped()
	RetriesExhausted()
}

// NopObserver discards all observations. Used in tests.
type NopObserver struct{}

func (NopObserver) EventPublished()   {}
func (NopObserver) PublishFailed()    {}
func (NopObserver) EventDropped()     {}
func (NopObserver) RetriesExhausted() {}
