package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjurado/orderpipe/internal/events"
	"github.com/mjurado/orderpipe/internal/mailer"
	"github.com/mjurado/orderpipe/internal/order/adapters/memory"
	"github.com/mjurado/orderpipe/internal/order/app"
	"github.com/mjurado/orderpipe/internal/order/ports"
	"github.com/mjurado/orderpipe/internal/pricing"
)

func newTestServer(t *testing.T) (*httptest.Server, *mailer.Queue) {
	t.Helper()

	repo := memory.NewRepository()
	catalog := pricing.NewStaticCatalog(
		pricing.ProductDetails{ProductID: "prod-10", Name: "Widget", UnitPrice: 19.99},
		pricing.ProductDetails{ProductID: "prod-11", Name: "Gadget", UnitPrice: 29.99},
	)
	dir := memory.NewDirectory(ports.Customer{ID: "cust-42", Name: "Ada", Email: "ada@example.com"})
	bus := events.NewBus()
	queue := mailer.NewQueue()
	mailer.NewNotifier(queue).Register(bus)

	service := app.NewService(repo, catalog, dir, bus)
	srv := httptest.NewServer(NewRouter(NewHandler(service, queue)))
	t.Cleanup(srv.Close)
	return srv, queue
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func createOrder(t *testing.T, srv *httptest.Server) OrderResponse {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", CreateOrderRequest{
		CustomerID: "cust-42",
		Date:       "2025-06-15",
		Items: []OrderItemInput{
			{ProductID: "prod-10", Quantity: 2},
			{ProductID: "prod-11", Quantity: 1},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var order OrderResponse
	require.NoError(t, json.Unmarshal(body, &order))
	return order
}

func TestCreateOrder(t *testing.T) {
	srv, _ := newTestServer(t)

	order := createOrder(t, srv)
	assert.NotZero(t, order.ID)
	assert.Equal(t, "PENDING", order.Status)
	assert.Equal(t, "2025-06-15", order.Date)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Widget", order.Items[0].ProductName)
	assert.InDelta(t, 69.97, order.Total, 1e-9)
}

func TestCreateOrder_UnknownCustomerIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", CreateOrderRequest{CustomerID: "cust-404"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "customer_not_found")
}

func TestCreateOrder_UnknownProductIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", CreateOrderRequest{
		CustomerID: "cust-42",
		Items:      []OrderItemInput{{ProductID: "prod-404", Quantity: 1}},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "product_not_found")
}

func TestAddItem_MergesDuplicateProduct(t *testing.T) {
	srv, _ := newTestServer(t)
	order := createOrder(t, srv)

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/items", srv.URL, order.ID),
		OrderItemInput{ProductID: "prod-10", Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var updated OrderResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	require.Len(t, updated.Items, 2)
	assert.Equal(t, 3, updated.Items[0].Quantity)
	assert.InDelta(t, 89.96, updated.Total, 1e-9)
}

func TestAddItem_ZeroQuantityIs422(t *testing.T) {
	srv, _ := newTestServer(t)
	order := createOrder(t, srv)

	resp, _ := doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/items", srv.URL, order.ID),
		OrderItemInput{ProductID: "prod-10", Quantity: 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRemoveItem(t *testing.T) {
	srv, _ := newTestServer(t)
	order := createOrder(t, srv)

	resp, body := doJSON(t, http.MethodDelete,
		fmt.Sprintf("%s/orders/%d/items/%d", srv.URL, order.ID, order.Items[0].LineID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated OrderResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "prod-11", updated.Items[0].ProductID)

	// Removing it again is a silent no-op.
	resp, _ = doJSON(t, http.MethodDelete,
		fmt.Sprintf("%s/orders/%d/items/%d", srv.URL, order.ID, order.Items[0].LineID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConfirmFlow(t *testing.T) {
	srv, queue := newTestServer(t)
	order := createOrder(t, srv)

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/confirm", srv.URL, order.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var confirmed OrderResponse
	require.NoError(t, json.Unmarshal(body, &confirmed))
	assert.Equal(t, "CONFIRMED", confirmed.Status)

	// The confirmation email is queued, not sent inline.
	assert.Equal(t, 1, queue.Len())

	// Item mutations now conflict.
	resp, errBody := doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/items", srv.URL, order.ID),
		OrderItemInput{ProductID: "prod-11", Quantity: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(errBody), "invalid_state")

	// So does a second confirmation.
	resp, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/confirm", srv.URL, order.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, queue.Len(), "failed confirm must not queue another email")
}

func TestGetOrder_UnknownIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/orders/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "order_not_found")
}

func TestCancelOrder(t *testing.T) {
	srv, _ := newTestServer(t)
	order := createOrder(t, srv)

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/cancel", srv.URL, order.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cancelled OrderResponse
	require.NoError(t, json.Unmarshal(body, &cancelled))
	assert.Equal(t, "CANCELLED", cancelled.Status)

	resp, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/confirm", srv.URL, order.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.MailQueueDepth)
}
