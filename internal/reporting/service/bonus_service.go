// Package service composes the bonus store, the distributor directory and the
// in-memory engine into the operations behind the bonus board.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/distributor-bonus-ledger/internal/changefeed"
	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/distributor"
	"github.com/distributor-bonus-ledger/internal/engine"
	"github.com/distributor-bonus-ledger/internal/platform/messaging/producers"
	"github.com/distributor-bonus-ledger/internal/reporting/session"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// Query selects the records of a fetch. Empty bounds default to the current month.
type Query struct {
	Start         string
	End           string
	DistributorID string
	GroupKey      string
	Limit         int
}

// FetchResult is a fetch after join, group filter, sort and aggregation.
// Stale is set when a newer fetch had already been applied to the view.
type FetchResult struct {
	Range     bonus.DateRange
	Records   []bonus.EnrichedRecord
	Summary   engine.AggregateSummary
	Groups    []engine.GroupSummary
	Truncated bool
	Stale     bool
}

// Dependencies are the collaborators of BonusService. Audit, Publisher and Pool are optional.
type Dependencies struct {
	Bonuses   bonus.Repository
	Directory distributor.Directory
	Catalog   distributor.Catalog
	Audit     bonus.AuditRepository
	Publisher producers.MessagePublisher
	Pool      *WorkerPool
}

// Options tune BonusService.
type Options struct {
	FetchLimit      int    // Default and maximum records per fetch
	ChangeFeedTable string // Table name written into published change events
}

type BonusService struct {
	bonuses   bonus.Repository
	directory distributor.Directory
	catalog   distributor.Catalog
	audit     bonus.AuditRepository
	publisher producers.MessagePublisher
	pool      *WorkerPool
	logger    *slog.Logger

	fetchLimit int
	table      string
	now        func() time.Time
}

func NewBonusService(logger *slog.Logger, deps Dependencies, opts Options) *BonusService {
	return &BonusService{
		bonuses:    deps.Bonuses,
		directory:  deps.Directory,
		catalog:    deps.Catalog,
		audit:      deps.Audit,
		publisher:  deps.Publisher,
		pool:       deps.Pool,
		logger:     logger,
		fetchLimit: opts.FetchLimit,
		table:      opts.ChangeFeedTable,
		now:        time.Now,
	}
}

func (s *BonusService) limit(requested int) int {
	if requested <= 0 || requested > s.fetchLimit {
		return s.fetchLimit
	}
	return requested
}

// FetchRecords loads, enriches and aggregates one range of records. When view is
// given the result is also offered to it; the store is never consulted while the
// view is locked. Any error leaves view untouched.
func (s *BonusService) FetchRecords(ctx context.Context, q Query, view *engine.Projection) (*FetchResult, error) {
	rng, err := bonus.ParseDateRange(q.Start, q.End, s.now())
	if err != nil {
		return nil, err
	}
	filter := bonus.Filter{Range: rng, DistributorID: q.DistributorID, GroupKey: q.GroupKey}

	var seq uint64
	if view != nil {
		seq = view.BeginFetch()
	}

	page, err := s.bonuses.FetchRecords(ctx, filter, s.limit(q.Limit))
	if err != nil {
		return nil, err
	}

	entries, err := s.directory.GetByIDs(ctx, engine.DistributorIDs(page.Records))
	if err != nil {
		s.logger.Error("Failed to resolve distributors", "count", len(page.Records), "error", err)
		return nil, fmt.Errorf("failed to resolve distributors: %w", err)
	}
	lookup := engine.NewLookup(entries)

	records := engine.SortByEntityName(engine.FilterByGroup(engine.JoinWithLookup(page.Records, lookup), q.GroupKey))

	summary, err := engine.Summarize(records)
	if err != nil {
		return nil, err
	}
	groups, err := engine.SummarizeByGroup(records)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{
		Range:     rng,
		Records:   records,
		Summary:   summary,
		Groups:    groups,
		Truncated: page.Truncated,
	}

	if view != nil {
		_, applied, err := view.Replace(seq, filter, records, lookup, page.Truncated)
		if err != nil {
			return nil, err
		}
		result.Stale = !applied
		if !applied {
			s.logger.Debug("Discarded out of order fetch", "seq", seq, "range", rng.String())
		}
	}

	s.logger.Info("Fetched bonus records",
		"range", rng.String(),
		"records", len(records),
		"truncated", page.Truncated,
	)
	return result, nil
}

// FetchPivot builds the paid-per-day pivot of the user's department. Both range
// bounds are required. In dense mode every group of the department gets a column;
// the group list and the totals are loaded concurrently.
func (s *BonusService) FetchPivot(ctx context.Context, user session.User, start, end string, dense bool) (*engine.PivotTable, error) {
	dept, err := session.RequireDepartment(user)
	if err != nil {
		return nil, err
	}
	rng, err := bonus.ParseExplicitDateRange(start, end)
	if err != nil {
		return nil, err
	}

	var (
		triples []bonus.PivotTriple
		groups  []distributor.Group
	)
	triplesDone := s.pool.Go(func() error {
		var err error
		triples, err = s.bonuses.FetchPivotTriples(ctx, rng, dept)
		return err
	})

	var known []string
	if dense {
		groupsErr := <-s.pool.Go(func() error {
			var err error
			groups, err = s.catalog.GroupsByDepartment(ctx, dept)
			return err
		})
		if err := <-triplesDone; err != nil {
			return nil, err
		}
		if groupsErr != nil {
			return nil, groupsErr
		}
		known = make([]string, len(groups))
		for i, g := range groups {
			known[i] = g.Code
		}
	} else if err := <-triplesDone; err != nil {
		return nil, err
	}

	table := engine.BuildPivot(triples, known)
	return &table, nil
}

// FetchDepartmentSummary returns the store's per-group totals for the user's department.
func (s *BonusService) FetchDepartmentSummary(ctx context.Context, user session.User, start, end string) ([]bonus.DepartmentSummaryRow, error) {
	dept, err := session.RequireDepartment(user)
	if err != nil {
		return nil, err
	}
	rng, err := bonus.ParseDateRange(start, end, s.now())
	if err != nil {
		return nil, err
	}
	return s.bonuses.FetchDepartmentSummary(ctx, rng, dept)
}

// SetStatus marks a record paid or reverts it to unpaid. The store row is the
// source of truth: the returned record and the view update are built from it.
// Audit and change publication failures are logged only.
func (s *BonusService) SetStatus(ctx context.Context, user session.User, id int64, target bonus.Status, view *engine.Projection) (*bonus.EnrichedRecord, error) {
	actor, err := session.RequireActor(user)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	_, change, err := bonus.Transition(bonus.Record{ID: id}, target, actor, now)
	if err != nil {
		return nil, err
	}

	update, err := s.bonuses.UpdateStatus(ctx, id, change)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("record_id", id, "status", string(change.Status), "actor", actor.Username)
	if cid := session.CorrelationID(ctx); cid != "" {
		logger = logger.With("correlation_id", cid)
	}

	lookup := s.lookupFor(ctx, logger, update.Record.DistributorID, view)
	enriched := lookup.Enrich(update.Record)

	if view != nil {
		if _, _, err := view.OnUpdate(update.Record); err != nil {
			logger.Warn("Updated record rejected by live view", "error", err)
		}
	}

	s.appendAudit(ctx, logger, user, actor, update)
	s.publishChange(ctx, logger, update, now)

	logger.Info("Bonus status updated", "from", string(update.Previous))
	return &enriched, nil
}

// lookupFor prefers the view's cached entry and falls back to the directory.
// A directory failure degrades to an "Unknown" enrichment.
func (s *BonusService) lookupFor(ctx context.Context, logger *slog.Logger, distributorID string, view *engine.Projection) engine.Lookup {
	if view != nil {
		if d, ok := view.Distributor(distributorID); ok {
			return engine.NewLookup([]distributor.Distributor{d})
		}
	}

	entries, err := s.directory.GetByIDs(ctx, []string{distributorID})
	if err != nil {
		logger.Warn("Failed to resolve distributor after status update", "distributor_id", distributorID, "error", err)
		return engine.Lookup{}
	}
	if view != nil {
		view.Remember(entries...)
	}
	return engine.NewLookup(entries)
}

func (s *BonusService) appendAudit(ctx context.Context, logger *slog.Logger, user session.User, actor bonus.Actor, update *bonus.StatusUpdate) {
	if s.audit == nil {
		return
	}

	entry := &bonus.StatusAudit{
		RecordID:      update.Record.ID,
		FromStatus:    update.Previous,
		ToStatus:      update.Record.Status,
		ActorID:       actor.ID,
		ActorName:     actor.Username,
		CorrelationID: session.CorrelationID(ctx),
	}
	if dept, ok := user.CurrentDepartment(); ok {
		entry.Department = dept
	}
	if update.Record.PaymentDate != nil {
		entry.PaymentDate = *update.Record.PaymentDate
	}

	if err := s.audit.Append(ctx, entry); err != nil {
		logger.Error("Failed to record status audit", "error", err)
	}
}

func (s *BonusService) publishChange(ctx context.Context, logger *slog.Logger, update *bonus.StatusUpdate, at time.Time) {
	if s.publisher == nil {
		return
	}

	envelope := changefeed.NewUpdateEnvelope(s.table, update.Record, update.Previous, at)
	if err := s.publisher.Publish(ctx, strconv.FormatInt(update.Record.ID, 10), envelope); err != nil {
		logger.Error("Failed to publish status change", "error", err)
	}
}

// StatusHistory returns the newest audit entries of a record first.
func (s *BonusService) StatusHistory(ctx context.Context, id int64, limit int) ([]*bonus.StatusAudit, error) {
	if s.audit == nil {
		return []*bonus.StatusAudit{}, nil
	}
	return s.audit.ListByRecordID(ctx, id, limit)
}

// SearchDistributors matches names and ids. limit defaults to 20 and is capped at 100.
func (s *BonusService) SearchDistributors(ctx context.Context, term string, limit int) ([]distributor.Distributor, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return s.catalog.Search(ctx, term, limit)
}

// ListGroups lists the DPCs of the user's department.
func (s *BonusService) ListGroups(ctx context.Context, user session.User) ([]distributor.Group, error) {
	dept, err := session.RequireDepartment(user)
	if err != nil {
		return nil, err
	}
	return s.catalog.GroupsByDepartment(ctx, dept)
}
