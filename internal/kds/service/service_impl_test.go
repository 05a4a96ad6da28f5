package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditrepo "github.com/smallbiznis/dinein/internal/audit/repository"
	auditservice "github.com/smallbiznis/dinein/internal/audit/service"
	catalogdomain "github.com/smallbiznis/dinein/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/dinein/internal/catalog/repository"
	"github.com/smallbiznis/dinein/internal/clock"
	"github.com/smallbiznis/dinein/internal/config"
	"github.com/smallbiznis/dinein/internal/events"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	kdsrepo "github.com/smallbiznis/dinein/internal/kds/repository"
	kdsservice "github.com/smallbiznis/dinein/internal/kds/service"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	orderrepo "github.com/smallbiznis/dinein/internal/order/repository"
	orderservice "github.com/smallbiznis/dinein/internal/order/service"
	"github.com/smallbiznis/dinein/internal/orderlock"
	"github.com/smallbiznis/dinein/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	outletID   = snowflake.ID(1000)
	mains      = snowflake.ID(3000)
	nasiGoreng = snowflake.ID(2000)
	esTeh      = snowflake.ID(2001)
	puding     = snowflake.ID(2002)
)

type fixture struct {
	db        *gorm.DB
	kds       kdsdomain.Service
	orders    orderdomain.Service
	clock     *clock.FakeClock
	published *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testsupport.NewDB(t,
		&kdsdomain.Station{},
		&kdsdomain.RoutingRule{},
		&kdsdomain.Ticket{},
		&kdsdomain.TicketItem{},
	)
	testsupport.SeedOutlet(t, db, outletID, "5", "10")
	category := mains
	testsupport.SeedMenuItem(t, db, nasiGoreng, outletID, &category, "Nasi Goreng", "100")
	testsupport.SeedMenuItem(t, db, esTeh, outletID, nil, "Es Teh", "15")
	testsupport.SeedMenuItem(t, db, puding, outletID, nil, "Puding", "20")

	node := testsupport.Node(t)
	fc := clock.NewFakeClock(time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC))
	locker := orderlock.NewGuard(orderlock.NewKeyedMutex(), nil, time.Second, nil)
	recorder := &events.Recorder{}

	orders := orderservice.NewService(orderservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fc,
		Repo:    orderrepo.Provide(),
		Catalog: catalogrepo.Provide(),
		Locker:  locker,
		Audit: auditservice.NewService(auditservice.Params{
			DB: db, Log: zap.NewNop(), GenID: node, Clock: fc, Repo: auditrepo.Provide(),
		}),
		Publisher: &events.Recorder{},
	})
	kds := kdsservice.NewService(kdsservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fc,
		Repo:      kdsrepo.Provide(),
		Orders:    orderrepo.Provide(),
		Catalog:   catalogrepo.Provide(),
		Locker:    locker,
		Publisher: recorder,
		Kitchen:   config.NewStaticKitchenConfigHolder(config.DefaultKitchenConfig()),
	})
	return &fixture{db: db, kds: kds, orders: orders, clock: fc, published: recorder}
}

func (f *fixture) station(t *testing.T, outlet snowflake.ID, name string) *kdsdomain.Station {
	t.Helper()
	st, err := f.kds.CreateStation(context.Background(), kdsdomain.CreateStationRequest{
		OutletID:       outlet,
		Name:           name,
		AlertThreshold: 10,
	})
	require.NoError(t, err)
	return st
}

func (f *fixture) rule(t *testing.T, stationID snowflake.ID, kind string, target snowflake.ID) {
	t.Helper()
	_, err := f.kds.AddRoutingRule(context.Background(), kdsdomain.AddRoutingRuleRequest{
		StationID: stationID,
		Kind:      kind,
		TargetID:  target,
	})
	require.NoError(t, err)
}

func (f *fixture) orderWith(t *testing.T, menuItems ...snowflake.ID) (*orderdomain.Order, []orderdomain.OrderItem) {
	t.Helper()
	ctx := context.Background()
	order, err := f.orders.OpenOrder(ctx, orderdomain.OpenOrderRequest{OutletID: outletID, TableRef: "T7", OpenedBy: "waiter-1"})
	require.NoError(t, err)
	items := make([]orderdomain.OrderItem, 0, len(menuItems))
	for _, id := range menuItems {
		item, err := f.orders.AddItem(ctx, orderdomain.AddItemRequest{OrderID: order.ID, MenuItemID: id, Quantity: 1})
		require.NoError(t, err)
		items = append(items, *item)
	}
	return order, items
}

func (f *fixture) itemStatuses(t *testing.T, orderID snowflake.ID) map[snowflake.ID]orderdomain.OrderItem {
	t.Helper()
	detail, err := f.orders.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	out := make(map[snowflake.ID]orderdomain.OrderItem, len(detail.Items))
	for _, item := range detail.Items {
		out[item.ID] = item
	}
	return out
}

func (f *fixture) linkedTicket(t *testing.T, stationID, orderID snowflake.ID, items ...orderdomain.OrderItem) *kdsdomain.Ticket {
	t.Helper()
	inputs := make([]kdsdomain.TicketItemInput, 0, len(items))
	for i := range items {
		id := items[i].ID
		inputs = append(inputs, kdsdomain.TicketItemInput{OrderItemID: &id, Quantity: items[i].Quantity})
	}
	ticket, err := f.kds.CreateTicket(context.Background(), kdsdomain.CreateTicketRequest{
		StationID:  stationID,
		OrderID:    &orderID,
		TableLabel: "T7",
		Items:      inputs,
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) update(t *testing.T, ticketID snowflake.ID, status string, perItem ...kdsdomain.ItemStatusUpdate) *kdsdomain.Ticket {
	t.Helper()
	ticket, err := f.kds.UpdateTicketStatus(context.Background(), kdsdomain.UpdateTicketStatusRequest{
		TicketID:     ticketID,
		Status:       status,
		ItemStatuses: perItem,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketMarksOrderItemsSent(t *testing.T) {
	f := newFixture(t)
	grill := f.station(t, outletID, "Grill")
	order, items := f.orderWith(t, nasiGoreng, esTeh)

	ticket := f.linkedTicket(t, grill.ID, order.ID, items...)
	assert.Equal(t, kdsdomain.TicketStatusNew, ticket.Status)
	assert.Equal(t, 1, ticket.TicketNumber)
	require.Len(t, ticket.Items, 2)
	assert.Equal(t, "Nasi Goreng", ticket.Items[0].Name)

	for _, item := range f.itemStatuses(t, order.ID) {
		assert.Equal(t, orderdomain.ItemStatusSent, item.Status)
		assert.NotNil(t, item.SentToKitchenAt)
	}
	assert.Equal(t, []string{events.EventKitchenTicketCreated}, f.published.Types())
}

func TestInProgressPropagatesAndKeepsFirstTimestamp(t *testing.T) {
	f := newFixture(t)
	grill := f.station(t, outletID, "Grill")
	order, items := f.orderWith(t, nasiGoreng, esTeh)
	ticket := f.linkedTicket(t, grill.ID, order.ID, items...)

	started := f.clock.Now()
	updated := f.update(t, ticket.ID, "IN_PROGRESS")
	require.NotNil(t, updated.StartedAt)
	assert.True(t, started.Equal(*updated.StartedAt))
	for _, item := range f.itemStatuses(t, order.ID) {
		assert.Equal(t, orderdomain.ItemStatusPreparing, item.Status)
	}

	f.clock.Advance(3 * time.Minute)
	again := f.update(t, ticket.ID, "IN_PROGRESS")
	require.NotNil(t, again.StartedAt)
	assert.True(t, started.Equal(*again.StartedAt))
	assert.Equal(t, kdsdomain.TicketStatusInProgress, again.Status)
}

func TestTimestampsFillOnlyMissingPhases(t *testing.T) {
	f := newFixture(t)
	grill := f.station(t, outletID, "Grill")
	order, items := f.orderWith(t, nasiGoreng)
	ticket := f.linkedTicket(t, grill.ID, order.ID, items...)

	ackAt := f.clock.Now()
	f.update(t, ticket.ID, "acknowledged")
	f.clock.Advance(time.Minute)
	acked := f.update(t, ticket.ID, "ACKNOWLEDGED")
	require.NotNil(t, acked.AcknowledgedAt)
	assert.True(t, ackAt.Equal(*acked.AcknowledgedAt))
	assert.Nil(t, acked.StartedAt)

	f.clock.Advance(5 * time.Minute)
	readyAt := f.clock.Now()
	ready := f.update(t, ticket.ID, "READY")
	require.NotNil(t, ready.StartedAt)
	require.NotNil(t, ready.CompletedAt)
	assert.True(t, readyAt.Equal(*ready.StartedAt))
	assert.True(t, ackAt.Equal(*ready.AcknowledgedAt))

	item := f.itemStatuses(t, order.ID)[items[0].ID]
	assert.Equal(t, orderdomain.ItemStatusReady, item.Status)
	require.NotNil(t, item.PreparedAt)

	served := f.update(t, ticket.ID, "SERVED")
	require.NotNil(t, served.ServedAt)
	item = f.itemStatuses(t, order.ID)[items[0].ID]
	assert.Equal(t, orderdomain.ItemStatusServed, item.Status)
	assert.NotNil(t, item.ServedAt)
}

func TestPropagationIsUnconditionalButVoidStays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	grill := f.station(t, outletID, "Grill")
	order, items := f.orderWith(t, nasiGoreng, esTeh)
	ticket := f.linkedTicket(t, grill.ID, order.ID, items...)

	f.update(t, ticket.ID, "READY")
	_, err := f.orders.VoidItem(ctx, orderdomain.VoidItemRequest{OrderID: order.ID, ItemID: items[1].ID, VoidedBy: "waiter-1"})
	require.NoError(t, err)

	// An out-of-order post moves the item back.
	f.update(t, ticket.ID, "ACKNOWLEDGED")
	statuses := f.itemStatuses(t, order.ID)
	assert.Equal(t, orderdomain.ItemStatusAcknowledged, statuses[items[0].ID].Status)
	assert.Equal(t, orderdomain.ItemStatusVoid, statuses[items[1].ID].Status)

	// NEW has no order-side counterpart.
	f.update(t, ticket.ID, "NEW")
	statuses = f.itemStatuses(t, order.ID)
	assert.Equal(t, orderdomain.ItemStatusAcknowledged, statuses[items[0].ID].Status)
}

func TestPerItemStatuses(t *testing.T) {
	f := newFixture(t)
	grill := f.station(t, outletID, "Grill")
	order, items := f.orderWith(t, nasiGoreng, esTeh)
	ticket := f.linkedTicket(t, grill.ID, order.ID, items...)

	updated := f.update(t, ticket.ID, "IN_PROGRESS",
		kdsdomain.ItemStatusUpdate{TicketItemID: ticket.Items[0].ID, Status: "READY"},
		kdsdomain.ItemStatusUpdate{TicketItemID: ticket.Items[1].ID, Status: "IN_PROGRESS"},
	)
	require.Len(t, updated.Items, 2)
	assert.Equal(t, kdsdomain.TicketStatusReady, updated.Items[0].Status)
	assert.NotNil(t, updated.Items[0].CompletedAt)
	assert.Equal(t, kdsdomain.TicketStatusInProgress, updated.Items[1].Status)
	assert.Nil(t, updated.Items[1].CompletedAt)

	other, otherItems := f.orderWith(t, puding)
	otherTicket := f.linkedTicket(t, grill.ID, other.ID, otherItems...)
	_, err := f.kds.UpdateTicketStatus(context.Background(), kdsdomain.UpdateTicketStatusRequest{
		TicketID:     ticket.ID,
		Status:       "READY",
		ItemStatuses: []kdsdomain.ItemStatusUpdate{{TicketItemID: otherTicket.Items[0].ID, Status: "READY"}},
	})
	assert.ErrorIs(t, err, kdsdomain.ErrTicketItemNotFound)

	_, err = f.kds.UpdateTicketStatus(context.Background(), kdsdomain.UpdateTicketStatusRequest{TicketID: ticket.ID, Status: "COOKED"})
	assert.ErrorIs(t, err, kdsdomain.ErrInvalidTicketStatus)
	_, err = f.kds.UpdateTicketStatus(context.Background(), kdsdomain.UpdateTicketStatusRequest{TicketID: 99, Status: "READY"})
	assert.ErrorIs(t, err, kdsdomain.ErrTicketNotFound)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	grill := f.station(t, outletID, "Grill")
	order, _ := f.orderWith(t, nasiGoreng)
	_, otherItems := f.orderWith(t, esTeh)

	manual := []kdsdomain.TicketItemInput{{Name: "Staff meal", Quantity: 1}}

	_, err := f.kds.CreateTicket(ctx, kdsdomain.CreateTicketRequest{StationID: 404, Items: manual})
	assert.ErrorIs(t, err, kdsdomain.ErrStationNotFound)

	_, err = f.kds.CreateTicket(ctx, kdsdomain.CreateTicketRequest{StationID: grill.ID})
	assert.ErrorIs(t, err, kdsdomain.ErrEmptyTicket)

	foreign := otherItems[0].ID
	_, err = f.kds.CreateTicket(ctx, kdsdomain.CreateTicketRequest{
		StationID: grill.ID,
		OrderID:   &order.ID,
		Items:     []kdsdomain.TicketItemInput{{OrderItemID: &foreign, Quantity: 1}},
	})
	assert.ErrorIs(t, err, kdsdomain.ErrOrderItemNotFound)

	require.NoError(t, f.db.Model(&kdsdomain.Station{}).Where("id = ?", grill.ID).Update("is_active", false).Error)
	_, err = f.kds.CreateTicket(ctx, kdsdomain.CreateTicketRequest{StationID: grill.ID, Items: manual})
	assert.ErrorIs(t, err, kdsdomain.ErrInactiveStation)
}

func TestTicketNumbersArePerStation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	grill := f.station(t, outletID, "Grill")
	bar := f.station(t, outletID, "Bar")
	manual := []kdsdomain.TicketItemInput{{Name: "Staff meal", Quantity: 1}}

	numbers := func(stationID snowflake.ID) int {
		ticket, err := f.kds.CreateTicket(ctx, kdsdomain.CreateTicketRequest{StationID: stationID, Items: manual})
		require.NoError(t, err)
		return ticket.TicketNumber
	}
	assert.Equal(t, 1, numbers(grill.ID))
	assert.Equal(t, 2, numbers(grill.ID))
	assert.Equal(t, 1, numbers(bar.ID))
}

func TestSendToKitchenRoutesBySetUnion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	grill := f.station(t, outletID, "Grill")
	bar := f.station(t, outletID, "Bar")
	f.rule(t, grill.ID, "CATEGORY", mains)
	f.rule(t, bar.ID, "ITEM", esTeh)
	f.rule(t, bar.ID, "category", mains)
	f.rule(t, bar.ID, "ITEM", nasiGoreng)

	stations, err := f.kds.ResolveStations(ctx, outletID, nasiGoreng, ptr(mains))
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{grill.ID, bar.ID}, stations)

	order, items := f.orderWith(t, nasiGoreng, esTeh, puding)
	tickets, err := f.kds.SendToKitchen(ctx, kdsdomain.SendToKitchenRequest{OrderID: order.ID, Priority: 2})
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	linked := func(ticket kdsdomain.Ticket) []snowflake.ID {
		var ids []snowflake.ID
		for _, item := range ticket.Items {
			ids = append(ids, *item.OrderItemID)
		}
		return ids
	}
	assert.Equal(t, grill.ID, tickets[0].StationID)
	assert.ElementsMatch(t, []snowflake.ID{items[0].ID, items[2].ID}, linked(tickets[0]))
	assert.Equal(t, bar.ID, tickets[1].StationID)
	assert.ElementsMatch(t, []snowflake.ID{items[0].ID, items[1].ID}, linked(tickets[1]))
	assert.Equal(t, 2, tickets[1].Priority)
	assert.Equal(t, "T7", tickets[1].TableLabel)

	for _, item := range f.itemStatuses(t, order.ID) {
		assert.Equal(t, orderdomain.ItemStatusSent, item.Status)
	}

	_, err = f.kds.SendToKitchen(ctx, kdsdomain.SendToKitchenRequest{OrderID: order.ID})
	assert.ErrorIs(t, err, kdsdomain.ErrNothingToSend)

	queue, err := f.kds.ListStationTickets(ctx, bar.ID, false)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Len(t, queue[0].Items, 2)
}

func TestSendToKitchenWithoutStation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, _ := f.orderWith(t, puding)

	_, err := f.kds.SendToKitchen(ctx, kdsdomain.SendToKitchenRequest{OrderID: order.ID})
	assert.ErrorIs(t, err, kdsdomain.ErrStationNotFound)

	_, err = f.kds.SendToKitchen(ctx, kdsdomain.SendToKitchenRequest{OrderID: 31337})
	assert.ErrorIs(t, err, orderdomain.ErrOrderNotFound)

	_, err = f.orders.VoidOrder(ctx, orderdomain.VoidOrderRequest{OrderID: order.ID, VoidedBy: "manager-1"})
	require.NoError(t, err)
	_, err = f.kds.SendToKitchen(ctx, kdsdomain.SendToKitchenRequest{OrderID: order.ID})
	assert.ErrorIs(t, err, orderdomain.ErrOrderClosed)
}

func TestCreateStationDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.kds.CreateStation(ctx, kdsdomain.CreateStationRequest{OutletID: outletID, Name: "  Hot Line "})
	require.NoError(t, err)
	assert.Equal(t, "Hot Line", st.Name)
	assert.Equal(t, "hot-line", st.Code)
	assert.True(t, st.IsActive)
	assert.Equal(t, config.DefaultKitchenConfig().DefaultPrepTime, st.DefaultPrepTime)
	assert.Equal(t, config.DefaultKitchenConfig().DefaultAlertThreshold, st.AlertThreshold)

	_, err = f.kds.CreateStation(ctx, kdsdomain.CreateStationRequest{OutletID: 4040, Name: "Ghost"})
	assert.ErrorIs(t, err, catalogdomain.ErrOutletNotFound)
	_, err = f.kds.CreateStation(ctx, kdsdomain.CreateStationRequest{OutletID: outletID, Name: " "})
	assert.ErrorIs(t, err, kdsdomain.ErrInvalidStation)

	_, err = f.kds.AddRoutingRule(ctx, kdsdomain.AddRoutingRuleRequest{StationID: st.ID, Kind: "TABLE", TargetID: 1})
	assert.ErrorIs(t, err, kdsdomain.ErrInvalidRule)
	_, err = f.kds.AddRoutingRule(ctx, kdsdomain.AddRoutingRuleRequest{StationID: 404, Kind: "ITEM", TargetID: 1})
	assert.ErrorIs(t, err, kdsdomain.ErrStationNotFound)
}

func TestFindStaleTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	grill := f.station(t, outletID, "Grill")
	order, items := f.orderWith(t, nasiGoreng)
	slow := f.linkedTicket(t, grill.ID, order.ID, items...)
	done, err := f.kds.CreateTicket(ctx, kdsdomain.CreateTicketRequest{
		StationID: grill.ID,
		Items:     []kdsdomain.TicketItemInput{{Name: "Staff meal", Quantity: 1}},
	})
	require.NoError(t, err)
	f.update(t, done.ID, "READY")

	stale, err := f.kds.FindStaleTickets(ctx, f.clock.Now().Add(9*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, stale)

	stale, err = f.kds.FindStaleTickets(ctx, f.clock.Now().Add(11*time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, slow.ID, stale[0].Ticket.ID)
	assert.Equal(t, grill.ID, stale[0].Station.ID)
	assert.Equal(t, 11*time.Minute, stale[0].Age)
}

func ptr[T any](v T) *T { return &v }
