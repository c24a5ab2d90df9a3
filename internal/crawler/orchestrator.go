package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/prospekt-crawler/internal/fanout"
	"github.com/JakeFAU/prospekt-crawler/internal/progress"
)

// ErrNoLogger is returned by constructors that were handed a nil logger.
var ErrNoLogger = errors.New("logger is required")

const warnNoLinks = "no shop links discovered on category page"

// Config controls one Orchestrator.
type Config struct {
	// CategoryURL is the page whose sidebar lists the shops.
	CategoryURL string
	// ExtractConcurrency caps concurrent extractions. Zero means one goroutine per shop.
	ExtractConcurrency int
}

// Orchestrator runs the two-phase crawl: discover shop links from the category
// page, fetch every detail page concurrently, extract records concurrently and
// flatten them in discovery order.
type Orchestrator struct {
	transport  Transport
	discoverer LinkDiscoverer
	extractor  RecordExtractor
	ids        IDGenerator
	clock      Clock
	events     progress.Emitter
	cfg        Config
	logger     *zap.Logger
}

// NewOrchestrator wires an Orchestrator. events may be nil.
func NewOrchestrator(
	transport Transport,
	discoverer LinkDiscoverer,
	extractor RecordExtractor,
	ids IDGenerator,
	clock Clock,
	events progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if logger == nil {
		return nil, ErrNoLogger
	}
	switch {
	case transport == nil:
		return nil, errors.New("transport is required")
	case discoverer == nil:
		return nil, errors.New("link discoverer is required")
	case extractor == nil:
		return nil, errors.New("record extractor is required")
	case ids == nil:
		return nil, errors.New("id generator is required")
	case clock == nil:
		return nil, errors.New("clock is required")
	case cfg.CategoryURL == "":
		return nil, errors.New("category url is required")
	}
	if events == nil {
		events = (*progress.Hub)(nil)
	}
	return &Orchestrator{
		transport:  transport,
		discoverer: discoverer,
		extractor:  extractor,
		ids:        ids,
		clock:      clock,
		events:     events,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// run carries per-run state through the phases.
type run struct {
	report Report
	id     [16]byte
	logger *zap.Logger
	start  time.Time
}

// Run executes one crawl. Only a failed category fetch or a cancelled ctx
// returns an error; detail page failures are counted in the Report.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	runID, err := o.ids.NewID()
	if err != nil {
		return Report{State: StateIdle, CategoryURL: o.cfg.CategoryURL}, fmt.Errorf("generate run id: %w", err)
	}
	r := &run{
		report: Report{
			RunID:       runID,
			CategoryURL: o.cfg.CategoryURL,
			State:       StateIdle,
			Records:     CrawlResult{},
		},
		id:     progress.ParseRunID(runID),
		logger: o.logger.With(zap.String("run_id", runID)),
		start:  time.Now(),
	}
	o.emit(r, progress.Event{Stage: progress.StageCrawlStart, URL: o.cfg.CategoryURL})
	r.logger.Info("crawl started", zap.String("category_url", o.cfg.CategoryURL))

	links, err := o.discover(ctx, r)
	if err != nil {
		return o.fail(r, err)
	}
	if links.Len() == 0 {
		r.logger.Warn(warnNoLinks, zap.String("category_url", o.cfg.CategoryURL))
		r.report.Warnings = append(r.report.Warnings, warnNoLinks)
		return o.finish(r), nil
	}
	r.report.Shops = links.Len()

	bodies := o.fetchDetails(ctx, r, links)
	if err := ctx.Err(); err != nil {
		return o.fail(r, fmt.Errorf("crawl interrupted: %w", err))
	}

	perShop := o.extractAll(ctx, r, links.Names(), bodies)
	for _, records := range perShop {
		r.report.Records = append(r.report.Records, records...)
	}
	return o.finish(r), nil
}

func (o *Orchestrator) discover(ctx context.Context, r *run) (*LinkMap, error) {
	r.report.State = StateDiscovering
	start := time.Now()
	body, err := o.transport.Fetch(ctx, o.cfg.CategoryURL)
	if err != nil {
		status := 0
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			status = fetchErr.StatusCode
		}
		o.emit(r, progress.Event{
			Stage:       progress.StageFetchDone,
			URL:         o.cfg.CategoryURL,
			StatusClass: progress.ClassifyStatus(status),
			Dur:         time.Since(start),
			Note:        err.Error(),
		})
		return nil, fmt.Errorf("fetch category page: %w", err)
	}
	o.emit(r, progress.Event{
		Stage:       progress.StageFetchDone,
		URL:         o.cfg.CategoryURL,
		Bytes:       int64(len(body)),
		StatusClass: progress.Status2xx,
		Dur:         time.Since(start),
	})

	links := o.discoverer.DiscoverLinks(body)
	r.logger.Info("shop links discovered", zap.Int("shops", links.Len()))
	o.emit(r, progress.Event{Stage: progress.StageLinksDiscovered, URL: o.cfg.CategoryURL, Count: links.Len()})
	return links, nil
}

// fetchDetails returns one body per shop in LinkMap order; failed fetches
// leave an empty body.
func (o *Orchestrator) fetchDetails(ctx context.Context, r *run, links *LinkMap) []string {
	r.report.State = StateFetchingDetails
	pages := o.transport.FetchMany(ctx, links.URLs())

	names := links.Names()
	bodies := make([]string, len(names))
	for i, name := range names {
		u, _ := links.Get(name)
		res, ok := pages[u]
		if !ok {
			res = PageFetchResult{URL: u, Err: ClassifyFetchError(u, 0, errors.New("no result returned"))}
		}
		evt := progress.Event{
			Stage:       progress.StageFetchDone,
			Shop:        name,
			URL:         u,
			Bytes:       int64(len(res.Body)),
			StatusClass: progress.ClassifyStatus(res.StatusCode),
			Dur:         res.Duration,
		}
		if !res.OK() {
			r.report.FetchFailures++
			evt.Bytes = 0
			evt.Note = res.Err.Error()
			r.logger.Warn("detail page fetch failed",
				zap.String("shop", name),
				zap.String("url", u),
				zap.Error(res.Err),
			)
			o.emit(r, evt)
			continue
		}
		bodies[i] = res.Body
		o.emit(r, evt)
	}
	return bodies
}

func (o *Orchestrator) extractAll(ctx context.Context, r *run, names, bodies []string) [][]FlyerRecord {
	r.report.State = StateExtracting
	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = i
	}
	return fanout.Map(ctx, idx, o.cfg.ExtractConcurrency, func(_ context.Context, i int) []FlyerRecord {
		return o.extract(r, names[i], bodies[i])
	})
}

// extract runs the extractor for one shop. A panic yields no records.
func (o *Orchestrator) extract(r *run, shop, body string) (records []FlyerRecord) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("record extraction panicked",
				zap.String("shop", shop),
				zap.Any("panic", p),
			)
			records = nil
		}
	}()
	records = o.extractor.ExtractRecords(body, shop)
	r.logger.Debug("records extracted", zap.String("shop", shop), zap.Int("records", len(records)))
	o.emit(r, progress.Event{Stage: progress.StageExtractDone, Shop: shop, Count: len(records)})
	return records
}

func (o *Orchestrator) finish(r *run) Report {
	r.report.State = StateDone
	r.report.Duration = time.Since(r.start)
	o.emit(r, progress.Event{
		Stage: progress.StageCrawlDone,
		URL:   o.cfg.CategoryURL,
		Count: len(r.report.Records),
		Dur:   r.report.Duration,
	})
	r.logger.Info("crawl finished",
		zap.Int("shops", r.report.Shops),
		zap.Int("records", len(r.report.Records)),
		zap.Int("fetch_failures", r.report.FetchFailures),
		zap.Duration("duration", r.report.Duration),
	)
	return r.report
}

func (o *Orchestrator) fail(r *run, err error) (Report, error) {
	r.report.Duration = time.Since(r.start)
	r.report.Records = CrawlResult{}
	o.emit(r, progress.Event{
		Stage: progress.StageCrawlError,
		URL:   o.cfg.CategoryURL,
		Dur:   r.report.Duration,
		Note:  err.Error(),
	})
	r.logger.Error("crawl failed", zap.String("category_url", o.cfg.CategoryURL), zap.Error(err))
	return r.report, err
}

func (o *Orchestrator) emit(r *run, evt progress.Event) {
	evt.RunID = r.id
	evt.TS = o.clock.Now()
	o.events.Emit(evt)
}
