// Package flow guards the simulated add-to-cart and buy-now calls: one call
// at a time per trigger, a fixed delay before the work runs, and a short
// settled period before the trigger accepts input again.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type State string

const (
	Idle    State = "idle"
	Pending State = "pending"
	Settled State = "settled"
)

const (
	AddToCartDelay = 800 * time.Millisecond
	BuyNowDelay    = 1000 * time.Millisecond
	ResetDelay     = 2 * time.Second
)

const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomePanic    = "panic"
	outcomeRejected = "rejected"
)

// ErrBusy is returned by Start while a previous call is pending or settled.
var ErrBusy = errors.New("flow busy")

// Metrics counts flow outcomes by flow name. A nil *Metrics is valid.
type Metrics struct {
	Outcomes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "card_flow_outcomes_total",
				Help: "Simulated card calls by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
	}
	reg.MustRegister(m.Outcomes)
	return m
}

func (m *Metrics) observe(flow, outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(flow, outcome).Inc()
}

type Flow struct {
	Name    string
	Delay   time.Duration
	Reset   time.Duration
	Log     *zap.Logger
	Metrics *Metrics

	mu    sync.Mutex
	state State
}

func New(name string, delay, reset time.Duration, log *zap.Logger, m *Metrics) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		Name:    name,
		Delay:   delay,
		Reset:   reset,
		Log:     log,
		Metrics: m,
		state:   Idle,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Start arms the flow and returns a channel that receives fn's result once
// the delay has elapsed. The call is not queued when the flow is busy. There
// is no cancellation: once armed, fn runs and the flow returns to idle even if
// nobody reads the result.
func (f *Flow) Start(fn func(ctx context.Context) error) (<-chan error, error) {
	f.mu.Lock()
	if f.state != Idle {
		f.mu.Unlock()
		f.Metrics.observe(f.Name, outcomeRejected)
		return nil, ErrBusy
	}
	f.state = Pending
	f.mu.Unlock()

	done := make(chan error, 1)
	go f.run(fn, done)
	return done, nil
}

func (f *Flow) run(fn func(ctx context.Context) error, done chan<- error) {
	time.Sleep(f.Delay)

	err := f.call(fn)
	if err != nil {
		f.Log.Error("flow failed, please try again", zap.String("flow", f.Name), zap.Error(err))
		f.setState(Idle)
		done <- err
		return
	}

	f.Metrics.observe(f.Name, outcomeOK)
	if f.Reset <= 0 {
		f.setState(Idle)
		done <- nil
		return
	}
	f.setState(Settled)
	done <- nil

	time.Sleep(f.Reset)
	f.setState(Idle)
}

func (f *Flow) call(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f.Metrics.observe(f.Name, outcomePanic)
			err = fmt.Errorf("%s panicked: %v", f.Name, r)
		}
	}()

	if err := fn(context.Background()); err != nil {
		f.Metrics.observe(f.Name, outcomeError)
		return err
	}
	return nil
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}
