package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pacing records how long workers were held back by the job limiter.
type Pacing struct {
	delay *prometheus.HistogramVec
}

// NewPacing registers the pacing histogram against reg.
func NewPacing(reg prometheus.Registerer) (*Pacing, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Pacing{
		delay: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "statusinfo_worker_pacing_delay_seconds",
				Help:    "Time workers spent waiting on the job rate limiter.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"worker"},
		),
	}
	if err := reg.Register(p.delay); err != nil {
		return nil, fmt.Errorf("register pacing collector: %w", err)
	}
	return p, nil
}

// Observe records one delay for worker. Safe on a nil receiver.
func (p *Pacing) Observe(worker string, d time.Duration) {
	if p == nil {
		return
	}
	p.delay.WithLabelValues(worker).Observe(d.Seconds())
}
