package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	publishedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskrelay_outbox_published_total",
		Help: "Total number of outbox events delivered to the broker",
	})
	publishFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskrelay_outbox_publish_failures_total",
		Help: "Total number of failed publish attempts",
	})
	droppedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskrelay_outbox_dropped_total",
		Help: "Total number of outbox events dropped for an unknown event type",
	})
	exhaustedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskrelay_outbox_exhausted_total",
		Help: "Total number of outbox events that reached the retry ceiling",
	})
	tasksCreatedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskrelay_tasks_created_total",
		Help: "Total number of tasks created",
	})
)

type prometheusObserver struct{}

func NewPrometheusObserver() DispatchObserver {
	return &prometheusObserver{}
}

func (p *prometheusObserver) EventPublished()   { publishedCounter.Inc() }
func (p *prometheusObserver) PublishFailed()    { publishFailureCounter.Inc() }
func (p *prometheusObserver) EventDropped()     { droppedCounter.Inc() }
func (p *prometheusObserver) RetriesExhausted() { exhaustedCounter.Inc() }

func TaskCreated() {
	tasksCreatedCounter.Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
