// Package loader persists meets into the store.
//
// A run optionally clears the store, seeds the event dictionary, then loads
// each meet in turn: source files are parsed in parallel, rows are
// normalized, and everything the meet produced is written in one
// transaction. A fatal error leaves earlier meets committed and the current
// meet rolled back.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/logger"
	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/normalize"
	"github.com/pfrederiksen/trackstats/internal/parser"
	"github.com/pfrederiksen/trackstats/internal/storage"
)

// ErrMeetFailed is returned when no source of a meet could be read or
// parsed.
var ErrMeetFailed = errors.New("every source of the meet failed")

// DefaultWorkers bounds parallel source parsing when Options.Workers is 0.
const DefaultWorkers = 4

// Clear selects what is deleted before a run.
type Clear int

const (
	ClearNone Clear = iota
	// ClearResults deletes results and relay members.
	ClearResults
	// ClearMeets also deletes meets.
	ClearMeets
	// ClearAll also deletes athletes. Events are kept.
	ClearAll
)

func (c Clear) String() string {
	switch c {
	case ClearResults:
		return "results"
	case ClearMeets:
		return "meets"
	case ClearAll:
		return "all"
	default:
		return ""
	}
}

// Options configure a Loader.
type Options struct {
	Policy      storage.Policy
	Clear       Clear
	RelayPolicy normalize.RelayPolicy
	// DataDir resolves relative source paths. Empty means the directory of
	// each meet document.
	DataDir string
	Workers int
	Logger  *logger.Logger
	Metrics *logger.Metrics
}

// Loader writes meets into a store. A Loader is not safe for concurrent
// runs; the store is a single writer.
type Loader struct {
	store   *storage.Store
	events  *dictionary.Events
	schools *dictionary.Schools
	opts    Options
	log     *logger.Logger
	metrics *logger.Metrics
}

// New creates a Loader. Both dictionaries are required.
func New(store *storage.Store, events *dictionary.Events, schools *dictionary.Schools, opts Options) (*Loader, error) {
	if store == nil {
		return nil, errors.New("loader: store is required")
	}
	if events == nil || schools == nil {
		return nil, errors.New("loader: events and schools dictionaries are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.RelayPolicy == "" {
		opts.RelayPolicy = normalize.RelayDrop
	}

	l := &Loader{store: store, events: events, schools: schools, opts: opts, log: opts.Logger, metrics: opts.Metrics}
	if l.log == nil {
		l.log = logger.Default()
	}
	if l.metrics == nil {
		l.metrics = logger.NewMetrics()
	}
	return l, nil
}

// Batch is one meet's normalized results, ready to be written.
type Batch struct {
	Meet    meet.Info
	Path    string
	Results []normalize.Result

	origin   []string
	sources  int
	failed   int
	counts   Counts
	warnings *warnings
}

func (b *Batch) source(i int) string {
	if i < len(b.origin) {
		return b.origin[i]
	}
	return b.Path
}

// Load reads, validates and loads the meet documents at paths. Every
// document is validated before the store is touched.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Summary, error) {
	cfgs := make([]*meet.Config, 0, len(paths))
	for _, path := range paths {
		cfg, err := meet.Load(path)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	return l.LoadConfigs(ctx, cfgs...)
}

// LoadConfigs loads already validated meet documents in order.
func (l *Loader) LoadConfigs(ctx context.Context, cfgs ...*meet.Config) (*Summary, error) {
	return l.run(ctx, len(cfgs), func(i int) (*Batch, error) {
		return l.prepare(ctx, cfgs[i])
	})
}

// LoadBatches writes prepared batches, one transaction each.
func (l *Loader) LoadBatches(ctx context.Context, batches ...Batch) (*Summary, error) {
	return l.run(ctx, len(batches), func(i int) (*Batch, error) {
		b := batches[i]
		b.counts.Rows = len(b.Results)
		return &b, nil
	})
}

func (l *Loader) run(ctx context.Context, n int, next func(int) (*Batch, error)) (*Summary, error) {
	start := time.Now()
	sum := newSummary()
	log := l.log.With(logger.Fields{"run_id": sum.RunID.String()})

	if err := l.begin(ctx, sum); err != nil {
		log.Error("Run aborted", nil, err)
		return sum, err
	}

	for i := 0; i < n; i++ {
		b, err := next(i)
		if b != nil && b.warnings != nil {
			sum.Warnings = append(sum.Warnings, b.warnings.list...)
		}
		if err == nil {
			err = l.write(ctx, sum, b, log)
		}
		if err != nil {
			log.Error("Run aborted", logger.Fields{"meets_loaded": len(sum.Meets)}, err)
			l.metrics.IncrCounter("runs.failed")
			return sum, err
		}
	}

	l.metrics.IncrCounter("runs.completed")
	l.metrics.SetGauge("run.meets", float64(len(sum.Meets)))
	l.metrics.SetGauge("run.warnings", float64(len(sum.Warnings)))
	l.metrics.RecordTiming("run.duration", time.Since(start))
	log.Info("Run complete", logger.Fields{
		"meets":    len(sum.Meets),
		"created":  sum.Totals.Created,
		"skipped":  sum.Totals.Skipped,
		"replaced": sum.Totals.Replaced,
		"rejected": sum.Totals.Rejected,
		"warnings": len(sum.Warnings),
	})
	return sum, nil
}

// begin applies the clear mode and seeds the event dictionary, each in its
// own transaction.
func (l *Loader) begin(ctx context.Context, sum *Summary) error {
	if l.opts.Clear != ClearNone {
		err := l.store.WithTx(ctx, func(tx *storage.Tx) error {
			switch l.opts.Clear {
			case ClearResults:
				return tx.ClearResults(ctx)
			case ClearMeets:
				return tx.ClearMeets(ctx)
			default:
				return tx.ClearAll(ctx)
			}
		})
		if err != nil {
			return fmt.Errorf("clearing %s: %w", l.opts.Clear, err)
		}
		sum.Cleared = l.opts.Clear.String()
		l.log.Info("Cleared store", logger.Fields{"mode": sum.Cleared})
	}

	err := l.store.WithTx(ctx, func(tx *storage.Tx) error {
		for _, ev := range l.events.All() {
			if _, err := tx.EnsureEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seeding events: %w", err)
	}
	return nil
}

type parsed struct {
	path string
	res  *parser.Result
	err  error
	kind string
}

// prepare parses every source of cfg in parallel and normalizes the rows in
// source order.
func (l *Loader) prepare(ctx context.Context, cfg *meet.Config) (*Batch, error) {
	b := &Batch{
		Meet:     cfg.Meet,
		Path:     cfg.Path,
		Results:  []normalize.Result{},
		sources:  len(cfg.Sources),
		warnings: newWarnings(cfg.Meet.Name),
	}

	out := make([]parsed, len(cfg.Sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i, src := range cfg.Sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := &out[i]
			p.path = cfg.SourcePath(l.opts.DataDir, src)

			content, err := os.ReadFile(p.path)
			if err != nil {
				p.err, p.kind = err, KindMissingSource
				return nil
			}
			ps, err := parser.Select(src.Parser, content)
			if errors.Is(err, parser.ErrUnrecognizedFormat) {
				return fmt.Errorf("%s: %w", p.path, err)
			}
			if err != nil {
				p.err, p.kind = err, KindParseError
				return nil
			}
			res, err := ps.Parse(content)
			if err != nil {
				p.err, p.kind = fmt.Errorf("%s: %w", ps.Name(), err), KindParseError
				return nil
			}
			p.res = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return b, fmt.Errorf("meet %s: %w", cfg.Meet.Name, err)
	}

	for i, src := range cfg.Sources {
		p := out[i]
		if p.err != nil {
			b.failed++
			b.warnings.add(p.kind, p.path, 0, "", p.err.Error())
			l.log.Warn("Source failed", logger.Fields{"meet": cfg.Meet.Name, "file": p.path, "error": p.err.Error()})
			continue
		}

		n, err := normalize.New(normalize.Context{
			Meet:           cfg.Meet,
			Gender:         src.Gender,
			NameMappings:   cfg.NameMappings,
			Events:         l.events,
			Schools:        l.schools,
			EventOverrides: src.Events,
			RelayPolicy:    l.opts.RelayPolicy,
		})
		if err != nil {
			return b, err
		}

		b.counts.Rows += len(p.res.Rows) + len(p.res.Rejected)
		for _, rej := range p.res.Rejected {
			b.counts.Rejected++
			b.warnings.add(KindRejectedRow, p.path, rej.Index, rej.Raw, rej.Reason)
		}

		batch := n.NormalizeAll(p.res.Rows)
		for _, issue := range batch.Issues {
			switch {
			case issue.Kind.Silent():
				b.counts.Ignored++
			case issue.Kind == normalize.UnresolvedMember:
				b.warnings.issue(p.path, issue)
			default:
				b.counts.Rejected++
				b.warnings.issue(p.path, issue)
			}
		}
		for _, res := range batch.Results {
			b.Results = append(b.Results, res)
			b.origin = append(b.origin, p.path)
		}

		l.log.Debug("Parsed source", logger.Fields{
			"meet":    cfg.Meet.Name,
			"file":    p.path,
			"parser":  p.res.Parser,
			"rows":    len(p.res.Rows),
			"results": len(batch.Results),
		})
	}

	if b.sources > 0 && b.failed == b.sources {
		return b, fmt.Errorf("meet %s: %w", cfg.Meet.Name, ErrMeetFailed)
	}
	return b, nil
}

// write stores one batch in a single transaction.
func (l *Loader) write(ctx context.Context, sum *Summary, b *Batch, log *logger.Logger) error {
	start := time.Now()
	var w *warnings

	ms := MeetSummary{
		Name:    b.Meet.Name,
		Date:    b.Meet.Date,
		Path:    b.Path,
		Sources: b.sources,
		Failed:  b.failed,
	}

	err := l.store.WithTx(ctx, func(tx *storage.Tx) error {
		ms.Counts = b.counts
		w = newWarnings(b.Meet.Name)

		id, created, err := tx.EnsureMeet(ctx, b.Meet)
		if err != nil {
			return err
		}
		ms.MeetID, ms.MeetCreated = id, created

		events := make(map[string]int64)
		for i, res := range b.Results {
			eventID, ok := events[res.Event.Name]
			if !ok {
				if eventID, err = tx.EnsureEvent(ctx, res.Event); err != nil {
					return err
				}
				events[res.Event.Name] = eventID
			}
			if err := l.writeResult(ctx, tx, &ms, w, b.source(i), id, eventID, res); err != nil {
				return err
			}
		}
		return nil
	})
	if w != nil {
		sum.Warnings = append(sum.Warnings, w.list...)
	}
	if err != nil {
		return fmt.Errorf("loading meet %s: %w", b.Meet.Name, err)
	}
	sum.addMeet(ms)

	l.metrics.AddCounter("results.created", ms.Created)
	l.metrics.AddCounter("results.skipped", ms.Skipped)
	l.metrics.AddCounter("results.replaced", ms.Replaced)
	l.metrics.AddCounter("rows.rejected", ms.Rejected)
	l.metrics.AddCounter("athletes.created", ms.AthletesCreated)
	l.metrics.RecordTiming("meet.load", time.Since(start))

	log.Info("Loaded meet", logger.Fields{
		"meet":     ms.Name,
		"date":     ms.Date,
		"created":  ms.Created,
		"skipped":  ms.Skipped,
		"replaced": ms.Replaced,
		"rejected": ms.Rejected,
		"duration": time.Since(start).String(),
	})
	return nil
}

func (l *Loader) writeResult(ctx context.Context, tx *storage.Tx, ms *MeetSummary, w *warnings,
	source string, meetID, eventID int64, res normalize.Result) error {
	rec := storage.Record{
		EventID: eventID,
		MeetID:  meetID,
		Gender:  res.Gender,
		Mark:    res.Mark.Value,
		Display: res.Mark.Display,
		Place:   res.Place,
		Level:   res.Level,
		Wind:    res.Wind,
		Heat:    res.Heat,
		Lane:    res.Lane,
		Flight:  res.Flight,
		Notes:   res.Notes,
	}

	var legs []relayLeg
	switch {
	case res.Relay != nil:
		rec.RelayTeam = res.Relay.Team
		var err error
		if legs, err = l.resolveLegs(ctx, tx, ms, w, source, res); err != nil {
			return err
		}
		if len(legs) == 0 && l.opts.RelayPolicy != normalize.RelayKeep {
			ms.Rejected++
			w.add(string(normalize.InvalidRelay), source, res.Index, res.Relay.Team, "no relay member could be resolved")
			return nil
		}
	case res.Athlete != nil:
		id, created, err := tx.ResolveAthlete(ctx, *res.Athlete)
		if errors.Is(err, storage.ErrAmbiguousAthlete) {
			ms.Rejected++
			w.add(KindAmbiguousAthlete, source, res.Index, res.Athlete.FullName(), err.Error())
			return nil
		}
		if err != nil {
			return err
		}
		if created {
			ms.AthletesCreated++
		}
		rec.AthleteID = id
	default:
		ms.Rejected++
		w.add(string(normalize.MissingName), source, res.Index, "", "result has no athlete")
		return nil
	}

	resultID, outcome, err := tx.InsertResult(ctx, rec, l.opts.Policy)
	if err != nil {
		return err
	}
	switch outcome {
	case storage.Created:
		ms.Created++
	case storage.Skipped:
		ms.Skipped++
	case storage.Replaced:
		ms.Replaced++
	}

	if res.Relay == nil || outcome == storage.Skipped {
		return nil
	}
	if outcome == storage.Replaced {
		if err := tx.ClearRelayMembers(ctx, resultID); err != nil {
			return err
		}
	}

	for _, leg := range legs {
		if err := tx.AddRelayMember(ctx, resultID, leg.athleteID, leg.order); err != nil {
			return err
		}
		ms.RelayMembers++
	}
	return nil
}

type relayLeg struct {
	athleteID int64
	order     int
}

// resolveLegs resolves the members of a relay result. Ambiguous members are
// reported and left out.
func (l *Loader) resolveLegs(ctx context.Context, tx *storage.Tx, ms *MeetSummary, w *warnings,
	source string, res normalize.Result) ([]relayLeg, error) {
	legs := make([]relayLeg, 0, len(res.Relay.Legs))
	for _, leg := range res.Relay.Legs {
		athleteID, created, err := tx.ResolveAthlete(ctx, leg.Athlete)
		if errors.Is(err, storage.ErrAmbiguousAthlete) {
			w.add(KindAmbiguousAthlete, source, res.Index, leg.Athlete.FullName(), err.Error())
			continue
		}
		if err != nil {
			return nil, err
		}
		if created {
			ms.AthletesCreated++
		}
		legs = append(legs, relayLeg{athleteID: athleteID, order: leg.Order})
	}
	return legs, nil
}
