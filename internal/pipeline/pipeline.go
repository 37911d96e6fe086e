// Package pipeline runs the daily job: for every ticker it refreshes bars,
// computes features, trains the direction model, derives a signal and hands
// it to the journal and notifier; after all tickers it publishes the run to
// the dashboard and any extra publishers.
//
// Failures are contained per ticker. Run never returns an error; the Report
// lists what happened to each ticker and which deliveries failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"stock-signal/internal/dashboard"
	"stock-signal/internal/feature"
	"stock-signal/internal/logger"
	"stock-signal/internal/metrics"
	"stock-signal/internal/model"
	"stock-signal/internal/predict"
	"stock-signal/internal/strategy"
)

// BarSource is satisfied by *bars.Store.
type BarSource interface {
	Load(ctx context.Context, ticker string) ([]model.Bar, error)
	Update(ctx context.Context, ticker string) ([]model.Bar, error)
}

// SignalNotifier is satisfied by *notification.SignalNotifier.
type SignalNotifier interface {
	Notify(ctx context.Context, sig model.Signal) bool
}

// DashboardPublisher is satisfied by *dashboard.Publisher.
type DashboardPublisher interface {
	Publish(ctx context.Context, signals []model.Signal, charts []dashboard.Chart) error
}

// Deps are the collaborators of a Pipeline. Only Bars is required.
type Deps struct {
	Bars       BarSource
	Journal    model.SignalJournal
	Notifier   SignalNotifier
	Dashboard  DashboardPublisher
	Publishers map[string]model.SignalPublisher // keyed by target name for logs and metrics
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Options tune a run. Zero values select defaults.
type Options struct {
	Workers    int // tickers processed concurrently; <= 1 is sequential
	RunID      string
	SkipUpdate bool // use local bars only
	Params     *predict.Params
	Rules      *strategy.Rules
	Now        func() time.Time
}

// Outcome is the result for one ticker. Exactly one of Signal and Err is set.
type Outcome struct {
	Ticker   model.Ticker
	Signal   *model.Signal
	Err      error
	Warning  error // non-fatal problem, e.g. update failed but local bars were used
	Bars     int
	Examples int
}

// Report summarizes a run.
type Report struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Outcomes   []Outcome
	Signals    []model.Signal // in ticker order
	Deliveries []error        // each wraps ErrDelivery
}

// Skipped counts tickers that produced no signal.
func (r Report) Skipped() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Err joins the delivery failures; nil when every delivery succeeded.
func (r Report) Err() error { return errors.Join(r.Deliveries...) }

// Pipeline is safe for sequential reuse; each Run is independent.
type Pipeline struct {
	deps   Deps
	opts   Options
	params predict.Params
	rules  strategy.Rules
	log    *slog.Logger
}

// New builds a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	p := &Pipeline{deps: deps, opts: opts}
	if p.opts.Workers < 1 {
		p.opts.Workers = 1
	}
	if p.opts.Now == nil {
		p.opts.Now = time.Now
	}
	p.params = predict.DefaultParams()
	if opts.Params != nil {
		p.params = *opts.Params
	}
	p.rules = strategy.DefaultRules()
	if opts.Rules != nil {
		p.rules = *opts.Rules
	}
	p.log = deps.Logger
	if p.log == nil {
		p.log = slog.Default()
	}
	if opts.RunID != "" {
		p.log = p.log.With(slog.String("run_id", opts.RunID))
	}
	return p
}

type tickerResult struct {
	outcome Outcome
	chart   *dashboard.Chart
}

// Run processes tickers and publishes the results. Tickers not started
// before ctx is done are reported with the context error.
func (p *Pipeline) Run(ctx context.Context, tickers []model.Ticker) Report {
	rep := Report{RunID: p.opts.RunID, Started: p.opts.Now()}
	p.log.Info("run started", "tickers", len(tickers), "workers", p.opts.Workers)

	results := make([]tickerResult, len(tickers))
	process := func(i int) {
		if err := ctx.Err(); err != nil {
			results[i] = tickerResult{outcome: Outcome{Ticker: tickers[i], Err: err}}
			return
		}
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("pipeline: panic processing %s: %v", tickers[i].Code, r)
				p.log.Error("ticker panicked", "ticker", tickers[i].Code, "panic", r)
				results[i] = tickerResult{outcome: Outcome{Ticker: tickers[i], Err: err}}
			}
		}()
		results[i] = p.processTicker(ctx, tickers[i])
	}

	if p.opts.Workers == 1 {
		for i := range tickers {
			process(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.opts.Workers)
		for i := range tickers {
			g.Go(func() error {
				process(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var charts []dashboard.Chart
	for _, r := range results {
		rep.Outcomes = append(rep.Outcomes, r.outcome)
		if r.outcome.Signal != nil {
			rep.Signals = append(rep.Signals, *r.outcome.Signal)
		}
		if r.chart != nil {
			charts = append(charts, *r.chart)
		}
		p.record(r.outcome)
	}

	if len(rep.Signals) > 0 {
		rep.Deliveries = p.deliver(ctx, rep.Signals, charts)
	} else {
		p.log.Warn("no signals generated; dashboard not updated")
	}

	rep.Finished = p.opts.Now()
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveRun(rep.Started, rep.Finished)
	}
	p.log.Info("run finished",
		"signals", len(rep.Signals),
		"skipped", rep.Skipped(),
		"delivery_failures", len(rep.Deliveries),
		"elapsed", rep.Finished.Sub(rep.Started).String(),
	)
	return rep
}

// processTicker runs every per-ticker stage; all failures end up in the
// Outcome. Chart rows are attached only to tickers that produced a signal.
func (p *Pipeline) processTicker(ctx context.Context, t model.Ticker) tickerResult {
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(t.Code, p.opts.Now()))
	log := p.log.With(slog.String("ticker", t.Code)).With(logger.LogWithTrace(ctx)...)
	res := tickerResult{outcome: Outcome{Ticker: t}}
	out := &res.outcome

	if !p.opts.SkipUpdate {
		start := time.Now()
		if _, err := p.deps.Bars.Update(ctx, t.Code); err != nil {
			out.Warning = fmt.Errorf("%w: %w", ErrAcquisition, err)
			log.Warn("update failed, using local history", "error", err)
		}
		p.observe(func(m *metrics.Metrics) { m.FetchDur.Observe(time.Since(start).Seconds()) })
	}

	bars, err := p.deps.Bars.Load(ctx, t.Code)
	if err != nil {
		out.Err = fmt.Errorf("%w: load: %w", ErrAcquisition, err)
		log.Error("load failed", "error", err)
		return res
	}
	out.Bars = len(bars)
	if len(bars) == 0 && out.Warning != nil {
		out.Err = out.Warning
		log.Warn("skipped: no local history after failed update")
		return res
	}
	if len(bars) < feature.MinBars {
		out.Err = fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), feature.MinBars)
		log.Warn("skipped", "reason", out.Err)
		return res
	}

	start := time.Now()
	full := feature.Compute(bars, false)
	rows := feature.DropIncomplete(full)
	p.observe(func(m *metrics.Metrics) { m.FeatureDur.Observe(time.Since(start).Seconds()) })
	if len(rows) == 0 {
		out.Err = ErrEmptyFeatureSet
		log.Warn("skipped", "reason", out.Err)
		return res
	}

	start = time.Now()
	pred, err := predict.TrainAndPredict(full, p.params)
	p.observe(func(m *metrics.Metrics) {
		m.TrainDur.Observe(time.Since(start).Seconds())
		m.TrainingExamples.WithLabelValues(t.Code).Set(float64(pred.Examples))
	})
	out.Examples = pred.Examples
	if errors.Is(err, predict.ErrInsufficientData) {
		out.Err = fmt.Errorf("%w: %w", ErrInsufficientData, err)
		log.Warn("skipped", "reason", out.Err)
		return res
	}
	if err != nil {
		out.Err = fmt.Errorf("predict: %w", err)
		log.Error("prediction failed", "error", err)
		return res
	}
	log.Info("prediction", "prob_up", pred.ProbUp, "examples", pred.Examples,
		"window_from", pred.From.Format(model.DateLayout), "window_to", pred.To.Format(model.DateLayout))

	sig, err := p.rules.Generate(rows, pred.ProbUp, t)
	if err != nil {
		out.Err = fmt.Errorf("signal: %w", err)
		log.Error("signal failed", "error", err)
		return res
	}
	out.Signal = &sig
	res.chart = &dashboard.Chart{Ticker: t, Rows: full}
	if lastBar := full[len(full)-1].DateKey(); sig.Date != lastBar {
		stale := fmt.Errorf("signal dated %s, latest bar %s has undefined features", sig.Date, lastBar)
		out.Warning = errors.Join(out.Warning, stale)
		log.Warn("stale signal date", "signal_date", sig.Date, "latest_bar", lastBar)
	}
	log.Info("signal", "action", sig.Action, "close", sig.Close, "reason", sig.Reason)

	if p.deps.Journal != nil {
		if err := p.deps.Journal.RecordSignal(ctx, p.opts.RunID, sig); err != nil {
			log.Error("journal write failed", "error", err)
			p.observe(func(m *metrics.Metrics) { m.DeliveryFailures.WithLabelValues("journal").Inc() })
		}
	}
	if p.deps.Notifier != nil {
		p.deps.Notifier.Notify(ctx, sig)
	}
	return res
}

// deliver publishes the run. Every failure is wrapped in ErrDelivery.
func (p *Pipeline) deliver(ctx context.Context, signals []model.Signal, charts []dashboard.Chart) []error {
	var errs []error
	fail := func(target string, err error) {
		err = fmt.Errorf("%w: %s: %w", ErrDelivery, target, err)
		p.log.Error("delivery failed", "target", target, "error", err)
		p.observe(func(m *metrics.Metrics) { m.DeliveryFailures.WithLabelValues(target).Inc() })
		errs = append(errs, err)
	}

	if p.deps.Dashboard != nil {
		if err := p.deps.Dashboard.Publish(ctx, signals, charts); err != nil {
			fail("dashboard", err)
		}
	}
	for name, pub := range p.deps.Publishers {
		if err := pub.Publish(ctx, signals); err != nil {
			fail(name, err)
		}
	}
	return errs
}

func (p *Pipeline) record(o Outcome) {
	p.observe(func(m *metrics.Metrics) {
		if o.Signal == nil {
			m.TickersSkipped.WithLabelValues(Reason(o.Err)).Inc()
			return
		}
		m.TickersProcessed.Inc()
		m.SignalsTotal.WithLabelValues(string(o.Signal.Action)).Inc()
		m.ProbUp.WithLabelValues(o.Ticker.Code).Set(o.Signal.ProbUp)
	})
}

func (p *Pipeline) observe(fn func(m *metrics.Metrics)) {
	if p.deps.Metrics != nil {
		fn(p.deps.Metrics)
	}
}
