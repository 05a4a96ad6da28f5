package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/dinein/internal/catalog/domain"
	"github.com/smallbiznis/dinein/internal/clock"
	"github.com/smallbiznis/dinein/internal/config"
	"github.com/smallbiznis/dinein/internal/events"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	"github.com/smallbiznis/dinein/internal/observability/logger"
	"github.com/smallbiznis/dinein/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"github.com/smallbiznis/dinein/internal/orderlock"
	"github.com/smallbiznis/dinein/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ticketNumberAttempts = 3

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      kdsdomain.Repository
	Orders    orderdomain.Repository
	Catalog   catalogdomain.Lookup
	Locker    orderlock.Locker
	Publisher events.Publisher
	Kitchen   *config.KitchenConfigHolder `optional:"true"`
	Metrics   *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      kdsdomain.Repository
	orders    orderdomain.Repository
	catalog   catalogdomain.Lookup
	locker    orderlock.Locker
	publisher events.Publisher
	kitchen   *config.KitchenConfigHolder
	metrics   *metrics.Metrics
}

func NewService(p Params) kdsdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("kds.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		orders:    p.Orders,
		catalog:   p.Catalog,
		locker:    p.Locker,
		publisher: p.Publisher,
		kitchen:   p.Kitchen,
		metrics:   p.Metrics,
	}
}

// CreateStation registers an active station. Zero prep time or alert
// threshold fall back to the kitchen config defaults.
func (s *Service) CreateStation(ctx context.Context, req kdsdomain.CreateStationRequest) (*kdsdomain.Station, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.DefaultPrepTime < 0 || req.AlertThreshold < 0 {
		return nil, kdsdomain.ErrInvalidStation
	}

	defaults := s.kitchen.Get()
	station := kdsdomain.Station{
		ID:              s.genID.Generate(),
		OutletID:        req.OutletID,
		Name:            name,
		Code:            slug.Make(name),
		IsActive:        true,
		DefaultPrepTime: req.DefaultPrepTime,
		AlertThreshold:  req.AlertThreshold,
		CreatedAt:       s.clock.Now(),
	}
	if station.DefaultPrepTime == 0 {
		station.DefaultPrepTime = defaults.DefaultPrepTime
	}
	if station.AlertThreshold == 0 {
		station.AlertThreshold = defaults.DefaultAlertThreshold
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.catalog.GetOutlet(ctx, tx, req.OutletID); err != nil {
			return err
		}
		return s.repo.InsertStation(ctx, tx, &station)
	})
	if err != nil {
		return nil, err
	}
	return &station, nil
}

// AddRoutingRule appends a rule after the station's existing ones.
func (s *Service) AddRoutingRule(ctx context.Context, req kdsdomain.AddRoutingRuleRequest) (*kdsdomain.RoutingRule, error) {
	kind, ok := kdsdomain.ParseRuleKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if !ok || req.TargetID == 0 {
		return nil, kdsdomain.ErrInvalidRule
	}

	var rule kdsdomain.RoutingRule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		station, err := s.repo.FindStation(ctx, tx, req.StationID)
		if err != nil {
			return err
		}
		if station == nil {
			return kdsdomain.ErrStationNotFound
		}
		position, err := s.repo.NextRulePosition(ctx, tx, station.ID)
		if err != nil {
			return err
		}
		rule = kdsdomain.RoutingRule{
			ID:        s.genID.Generate(),
			StationID: station.ID,
			Kind:      kind,
			TargetID:  req.TargetID,
			Position:  position,
			CreatedAt: s.clock.Now(),
		}
		return s.repo.InsertRule(ctx, tx, &rule)
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListStationTickets returns the station queue, highest priority first.
func (s *Service) ListStationTickets(ctx context.Context, stationID snowflake.ID, includeServed bool) ([]kdsdomain.Ticket, error) {
	station, err := s.repo.FindStation(ctx, s.db, stationID)
	if err != nil {
		return nil, err
	}
	if station == nil {
		return nil, kdsdomain.ErrStationNotFound
	}

	tickets, err := s.repo.ListStationTickets(ctx, s.db, stationID, includeServed)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, s.db, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// FindStaleTickets returns tickets not yet READY or SERVED whose age exceeds
// their station's alert threshold.
func (s *Service) FindStaleTickets(ctx context.Context, now time.Time) ([]kdsdomain.StaleTicket, error) {
	tickets, err := s.repo.ListOpenTickets(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, nil
	}

	stationIDs := make([]snowflake.ID, 0, len(tickets))
	seen := make(map[snowflake.ID]struct{}, len(tickets))
	for _, t := range tickets {
		if _, ok := seen[t.StationID]; !ok {
			seen[t.StationID] = struct{}{}
			stationIDs = append(stationIDs, t.StationID)
		}
	}
	stations, err := s.repo.ListStations(ctx, s.db, stationIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]kdsdomain.Station, len(stations))
	for _, st := range stations {
		byID[st.ID] = st
	}

	fallback := s.kitchen.Get().DefaultAlertThreshold
	var stale []kdsdomain.StaleTicket
	for _, t := range tickets {
		station, ok := byID[t.StationID]
		if !ok {
			continue
		}
		threshold := station.AlertThreshold
		if threshold <= 0 {
			threshold = fallback
		}
		age := now.Sub(t.CreatedAt)
		if age > time.Duration(threshold)*time.Minute {
			stale = append(stale, kdsdomain.StaleTicket{Ticket: t, Station: station, Age: age})
		}
	}
	return stale, nil
}

func (s *Service) attachItems(ctx context.Context, conn *gorm.DB, tickets []kdsdomain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	items, err := s.repo.ListTicketItems(ctx, conn, ids)
	if err != nil {
		return err
	}
	byTicket := make(map[snowflake.ID][]kdsdomain.TicketItem, len(tickets))
	for _, item := range items {
		byTicket[item.TicketID] = append(byTicket[item.TicketID], item)
	}
	for i := range tickets {
		tickets[i].Items = byTicket[tickets[i].ID]
		if tickets[i].Items == nil {
			tickets[i].Items = []kdsdomain.TicketItem{}
		}
	}
	return nil
}

// ticketTx runs fn in a transaction, retrying when a concurrent writer took
// the same ticket number. fn must generate ids and numbers on every call.
func (s *Service) ticketTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < ticketNumberAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		s.log.Debug("ticket number taken, retrying", zap.Int("attempt", attempt+1))
	}
	return err
}

func (s *Service) publish(ctx context.Context, eventType string, data any) {
	env, err := events.NewEnvelope(eventType, s.clock.Now(), data)
	if err == nil {
		err = s.publisher.Publish(ctx, events.KitchenTicketsTopic, env)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithContext(ctx, s.log).Warn("publish event", zap.String("type", eventType), zap.Error(err))
	}
}
