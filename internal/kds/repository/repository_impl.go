package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dinein/internal/kds/domain"
	"github.com/smallbiznis/dinein/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertStation(ctx context.Context, conn *gorm.DB, station *domain.Station) error {
	return conn.WithContext(ctx).Create(station).Error
}

func (r *repo) FindStation(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Station, error) {
	var station domain.Station
	err := conn.WithContext(ctx).Where("id = ?", id).Take(&station).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &station, nil
}

func (r *repo) FirstActiveStation(ctx context.Context, conn *gorm.DB, outletID snowflake.ID) (*domain.Station, error) {
	var station domain.Station
	err := conn.WithContext(ctx).
		Where("outlet_id = ? AND is_active = ?", outletID, true).
		Order("id ASC").
		Take(&station).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &station, nil
}

func (r *repo) ListStations(ctx context.Context, conn *gorm.DB, ids []snowflake.ID) ([]domain.Station, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var stations []domain.Station
	err := conn.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&stations).Error
	return stations, err
}

func (r *repo) InsertRule(ctx context.Context, conn *gorm.DB, rule *domain.RoutingRule) error {
	return conn.WithContext(ctx).Create(rule).Error
}

func (r *repo) NextRulePosition(ctx context.Context, conn *gorm.DB, stationID snowflake.ID) (int, error) {
	var next int
	err := conn.WithContext(ctx).
		Model(&domain.RoutingRule{}).
		Select("COALESCE(MAX(position), 0) + 1").
		Where("station_id = ?", stationID).
		Scan(&next).Error
	return next, err
}

func (r *repo) ListOutletRules(ctx context.Context, conn *gorm.DB, outletID snowflake.ID) ([]domain.RoutingRule, error) {
	var rules []domain.RoutingRule
	err := conn.WithContext(ctx).
		Table("kds_routing_rules AS r").
		Select("r.*").
		Joins("JOIN kds_stations s ON s.id = r.station_id").
		Where("s.outlet_id = ? AND s.is_active = ?", outletID, true).
		Order("r.station_id ASC, r.position ASC").
		Find(&rules).Error
	return rules, err
}

func (r *repo) InsertTicket(ctx context.Context, conn *gorm.DB, ticket *domain.Ticket) error {
	return conn.WithContext(ctx).Create(ticket).Error
}

func (r *repo) NextTicketNumber(ctx context.Context, conn *gorm.DB, stationID snowflake.ID) (int, error) {
	var next int
	err := conn.WithContext(ctx).
		Model(&domain.Ticket{}).
		Select("COALESCE(MAX(ticket_number), 0) + 1").
		Where("station_id = ?", stationID).
		Scan(&next).Error
	return next, err
}

func (r *repo) FindTicket(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	return findTicket(conn.WithContext(ctx), id)
}

func (r *repo) FindTicketForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	return findTicket(db.ForUpdate(conn.WithContext(ctx)), id)
}

func findTicket(conn *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := conn.Where("id = ?", id).Take(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repo) UpdateTicket(ctx context.Context, conn *gorm.DB, ticket *domain.Ticket) error {
	return conn.WithContext(ctx).Save(ticket).Error
}

func (r *repo) ListStationTickets(ctx context.Context, conn *gorm.DB, stationID snowflake.ID, includeServed bool) ([]domain.Ticket, error) {
	q := conn.WithContext(ctx).Where("station_id = ?", stationID)
	if !includeServed {
		q = q.Where("status <> ?", domain.TicketStatusServed)
	}
	var tickets []domain.Ticket
	err := q.Order("priority DESC, ticket_number ASC").Find(&tickets).Error
	return tickets, err
}

func (r *repo) ListOpenTickets(ctx context.Context, conn *gorm.DB) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := conn.WithContext(ctx).
		Where("status NOT IN ?", []domain.TicketStatus{domain.TicketStatusReady, domain.TicketStatusServed}).
		Order("created_at ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *repo) InsertTicketItems(ctx context.Context, conn *gorm.DB, items []domain.TicketItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&items).Error
}

func (r *repo) ListTicketItems(ctx context.Context, conn *gorm.DB, ticketIDs []snowflake.ID) ([]domain.TicketItem, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	var items []domain.TicketItem
	err := conn.WithContext(ctx).
		Where("ticket_id IN ?", ticketIDs).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateTicketItem(ctx context.Context, conn *gorm.DB, item *domain.TicketItem) error {
	return conn.WithContext(ctx).Save(item).Error
}
