package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	auditrepo "github.com/smallbiznis/dinein/internal/audit/repository"
	auditservice "github.com/smallbiznis/dinein/internal/audit/service"
	catalogrepo "github.com/smallbiznis/dinein/internal/catalog/repository"
	"github.com/smallbiznis/dinein/internal/clock"
	"github.com/smallbiznis/dinein/internal/events"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	kdsrepo "github.com/smallbiznis/dinein/internal/kds/repository"
	kdsservice "github.com/smallbiznis/dinein/internal/kds/service"
	obsmiddleware "github.com/smallbiznis/dinein/internal/observability/logger"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	orderrepo "github.com/smallbiznis/dinein/internal/order/repository"
	orderservice "github.com/smallbiznis/dinein/internal/order/service"
	"github.com/smallbiznis/dinein/internal/orderlock"
	scheduledomain "github.com/smallbiznis/dinein/internal/schedule/domain"
	schedulerepo "github.com/smallbiznis/dinein/internal/schedule/repository"
	scheduleservice "github.com/smallbiznis/dinein/internal/schedule/service"
	"github.com/smallbiznis/dinein/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOutlet = snowflake.ID(1000)
	testDish   = snowflake.ID(2000)
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testsupport.NewDB(t,
		&kdsdomain.Station{},
		&kdsdomain.RoutingRule{},
		&kdsdomain.Ticket{},
		&kdsdomain.TicketItem{},
		&scheduledomain.Shift{},
	)
	testsupport.SeedOutlet(t, db, testOutlet, "5", "10")
	testsupport.SeedMenuItem(t, db, testDish, testOutlet, nil, "Nasi Goreng", "100")

	node := testsupport.Node(t)
	fc := clock.NewFakeClock(time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC))
	locker := orderlock.NewGuard(orderlock.NewKeyedMutex(), nil, time.Second, nil)
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fc, Repo: auditrepo.Provide(),
	})

	orders := orderservice.NewService(orderservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fc,
		Repo:      orderrepo.Provide(),
		Catalog:   catalogrepo.Provide(),
		Locker:    locker,
		Audit:     audit,
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
		Publisher: &events.Recorder{},
	})
	shifts := scheduleservice.NewService(scheduleservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fc,
		Repo:   schedulerepo.Provide(),
		Locker: locker,
		Audit:  audit,
	})

	router := gin.New()
	router.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{ErrorClassifier: classifyErrorForLog}))
	router.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:         router,
		OrderSvc:    orders,
		KDSSvc:      kds,
		ScheduleSvc: shifts,
		AuditSvc:    audit,
	})
	return router
}

func do(t *testing.T, router http.Handler, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(obsmiddleware.HeaderActorID, actor)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body), resp.Body.String())
	return body.Error
}

func openOrder(t *testing.T, router http.Handler) orderdomain.Order {
	t.Helper()
	resp := do(t, router, http.MethodPost, "/v1/orders", "waiter-1", `{"outlet_id":"1000","table_ref":"T12"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeData[orderdomain.Order](t, resp)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	order := openOrder(t, router)
	base := "/v1/orders/" + order.ID.String()

	resp := do(t, router, http.MethodPost, base+"/items", "waiter-1", `{"menu_item_id":"2000","quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = do(t, router, http.MethodGet, base, "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	detail := decodeData[orderdomain.OrderDetail](t, resp)
	assert.True(t, decimal.RequireFromString("230").Equal(detail.Order.Total), detail.Order.Total.String())
	assert.Len(t, detail.Items, 1)

	resp = do(t, router, http.MethodPost, base+"/payments", "cashier-1", `{"amount":"230","method":"CASH"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	paid := decodeData[orderdomain.PaymentResult](t, resp)
	assert.Equal(t, orderdomain.OrderStatusPaid, paid.Order.Status)
	assert.True(t, paid.RemainingAmount.IsZero())

	resp = do(t, router, http.MethodPost, base+"/close", "manager-1", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	closed := decodeData[orderdomain.Order](t, resp)
	assert.Equal(t, orderdomain.OrderStatusClosed, closed.Status)

	resp = do(t, router, http.MethodPost, base+"/items", "waiter-1", `{"menu_item_id":"2000","quantity":1}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "order_closed", decodeError(t, resp).Code)

	resp = do(t, router, http.MethodGet, base+"/audit-logs", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, decodeData[[]json.RawMessage](t, resp))
}

func TestMutationsRequireActor(t *testing.T) {
	router := newTestRouter(t)

	resp := do(t, router, http.MethodPost, "/v1/orders", "", `{"outlet_id":"1000","table_ref":"T1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "actor_required", payload.Errors[0].Code)
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t)
	order := openOrder(t, router)
	base := "/v1/orders/" + order.ID.String()

	resp := do(t, router, http.MethodGet, "/v1/orders/42", "", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "order_not_found", decodeError(t, resp).Code)

	resp = do(t, router, http.MethodGet, "/v1/orders/not-a-number", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, router, http.MethodPost, base+"/items", "waiter-1", `{"menu_item_id":"2000","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_quantity", decodeError(t, resp).Code)

	resp = do(t, router, http.MethodPost, base+"/items", "waiter-1", `{"menu_item_id":"2000","quantity":1}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = do(t, router, http.MethodPost, base+"/discounts", "manager-1", `{"name":"Too much","type":"FLAT","value":"500"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "discount_exceeds_subtotal", decodeError(t, resp).Code)

	resp = do(t, router, http.MethodPost, base+"/payments", "cashier-1", `{"amount":"10","method":"BARTER"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_payment_method", decodeError(t, resp).Code)

	resp = do(t, router, http.MethodPost, base+"/items", "waiter-1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestKitchenFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	order := openOrder(t, router)
	base := "/v1/orders/" + order.ID.String()

	resp := do(t, router, http.MethodPost, "/v1/kds/stations", "", `{"outlet_id":"1000","name":"Hot Line"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	station := decodeData[kdsdomain.Station](t, resp)

	resp = do(t, router, http.MethodPost, base+"/kitchen", "", "")
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "no_new_items", decodeError(t, resp).Code)

	resp = do(t, router, http.MethodPost, base+"/items", "waiter-1", `{"menu_item_id":"2000","quantity":1}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = do(t, router, http.MethodPost, base+"/kitchen", "", `{"priority":1}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	tickets := decodeData[[]kdsdomain.Ticket](t, resp)
	require.Len(t, tickets, 1)
	assert.Equal(t, station.ID, tickets[0].StationID)

	resp = do(t, router, http.MethodPatch, "/v1/kds/tickets/"+tickets[0].ID.String()+"/status", "", `{"status":"READY"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	ticket := decodeData[kdsdomain.Ticket](t, resp)
	assert.Equal(t, kdsdomain.TicketStatusReady, ticket.Status)

	resp = do(t, router, http.MethodGet, "/v1/kds/stations/"+station.ID.String()+"/tickets", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeData[[]kdsdomain.Ticket](t, resp), 1)

	resp = do(t, router, http.MethodPatch, "/v1/kds/tickets/"+tickets[0].ID.String()+"/status", "", `{"status":"COOKED"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestShiftConflictOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	body := `{"employee_id":"501","outlet_id":"1000","date":"2026-05-02","start":"09:00","end":"17:00"}`

	resp := do(t, router, http.MethodPost, "/v1/shifts", "manager-1", body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	shift := decodeData[scheduledomain.Shift](t, resp)

	resp = do(t, router, http.MethodPost, "/v1/shifts", "manager-1",
		`{"employee_id":"501","outlet_id":"1000","date":"2026-05-02","start":"16:00","end":"20:00"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "shift_conflict", decodeError(t, resp).Code)

	resp = do(t, router, http.MethodPost, "/v1/shifts/"+shift.ID.String()+"/cancel", "manager-1", "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, router, http.MethodGet, "/v1/shifts?employee_id=501&date=2026-05-02", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	listed := decodeData[[]scheduledomain.Shift](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, scheduledomain.ShiftStatusCancelled, listed[0].Status)
}
