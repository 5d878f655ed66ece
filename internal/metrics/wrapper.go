package metrics

// Wrapper adapts Metrics to the small observer interfaces consumed by the
// ensemble and feed packages, avoiding a direct prometheus dependency (and
// import cycles) in the core.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) DecisionInc(strategy string) {
	w.m.Decisions.WithLabelValues(strategy).Inc()
}

func (w *Wrapper) DecisionConfidenceObserve(confidence float64) {
	w.m.DecisionConfidence.Observe(confidence)
}

func (w *Wrapper) RoundLatencyObserve(seconds float64) {
	w.m.RoundLatency.Observe(seconds)
}

func (w *Wrapper) LearnUpdateInc() {
	w.m.LearnUpdates.Inc()
}

func (w *Wrapper) PredictorWeightSet(id string, weight float64) {
	w.m.PredictorWeights.WithLabelValues(id).Set(weight)
}

func (w *Wrapper) ProviderFaultInc() {
	w.m.ProviderFaults.Inc()
}

func (w *Wrapper) PersistenceErrorInc() {
	w.m.PersistenceErrors.Inc()
}

func (w *Wrapper) EventReceivedInc() {
	w.m.EventsReceived.Inc()
}

func (w *Wrapper) FeedErrorInc() {
	w.m.FeedErrors.Inc()
}

func (w *Wrapper) WSReconnectInc() {
	w.m.WSReconnects.Inc()
}
