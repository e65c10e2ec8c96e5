package httpserver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tpq-digital/payment-service/internal/config"
	"github.com/tpq-digital/payment-service/internal/gateway"
	"github.com/tpq-digital/payment-service/internal/repo/order"
	"github.com/tpq-digital/payment-service/internal/service/checkout"
	"github.com/tpq-digital/payment-service/internal/service/reconcile"
)

const (
	testServerKey   = "SB-Mid-server-testkey"
	testXenditToken = "xnd-webhook-token"
)

type fakeReconciler struct {
	deliveries []*gateway.Delivery
	result     *reconcile.Result
	err        error
}

func (f *fakeReconciler) Process(_ context.Context, d *gateway.Delivery) (*reconcile.Result, error) {
	f.deliveries = append(f.deliveries, d)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &reconcile.Result{OrderID: d.OrderID, Status: d.Status}, nil
}

type fakeCheckout struct {
	requests []*checkout.Request
	order    *order.Order
	detail   *checkout.Detail
	err      error
}

func (f *fakeCheckout) Create(_ context.Context, req *checkout.Request) (*order.Order, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeCheckout) GetDetail(_ context.Context, orderID string) (*checkout.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func newTestServer(f *fakeReconciler) *Server {
	return newTestServerWithCheckout(f, &fakeCheckout{})
}

func newTestServerWithCheckout(f *fakeReconciler, c *fakeCheckout) *Server {
	return NewServer(":0", &config.GatewayConfig{
		MidtransServerKey:  testServerKey,
		XenditWebhookToken: testXenditToken,
	}, f, c)
}

func midtransBody(orderID, status, statusCode, grossAmount, serverKey string) []byte {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	payload := map[string]string{
		"order_id":           orderID,
		"transaction_status": status,
		"fraud_status":       "accept",
		"status_code":        statusCode,
		"gross_amount":       grossAmount,
		"transaction_id":     "mid-txn-1",
		"payment_type":       "bank_transfer",
		"signature_key":      hex.EncodeToString(sum[:]),
	}
	b, _ := json.Marshal(payload)
	return b
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) webhookResponse {
	t.Helper()
	var resp webhookResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestMidtransWebhook_SettlementApplied(t *testing.T) {
	f := &fakeReconciler{}
	mux := newTestServer(f).Mux()

	body := midtransBody("TPQ-SPP-001", "settlement", "200", "150000.00", testServerKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/midtrans", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	assert.Len(t, f.deliveries, 1)
	d := f.deliveries[0]
	assert.Equal(t, gateway.Gateway_Midtrans, d.Gateway)
	assert.Equal(t, "TPQ-SPP-001", d.OrderID)
	assert.Equal(t, gateway.PaymentStatus_Success, d.Status)
	assert.Equal(t, "bank_transfer", d.PaymentType)
}

func TestMidtransWebhook_InvalidSignatureRejected(t *testing.T) {
	f := &fakeReconciler{}
	mux := newTestServer(f).Mux()

	body := midtransBody("TPQ-SPP-001", "settlement", "200", "150000.00", "wrong-key")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/midtrans", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Empty(t, f.deliveries, "reconciler must not run on bad signature")
}

func TestMidtransWebhook_MalformedPayload(t *testing.T) {
	f := &fakeReconciler{}
	mux := newTestServer(f).Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/midtrans", bytes.NewReader([]byte("not-json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.deliveries)
}

func TestCartWebhook_XenditExpiredMapsToFailed(t *testing.T) {
	f := &fakeReconciler{}
	mux := newTestServer(f).Mux()

	body := []byte(`{"id":"pay-9","external_id":"TPQ-CART-9","status":"EXPIRED","amount":50000}`)
	mac := hmac.New(sha256.New, []byte(testXenditToken))
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/cart", bytes.NewReader(body))
	req.Header.Set("x-gateway", "xendit")
	req.Header.Set("x-signature", hex.EncodeToString(mac.Sum(nil)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.deliveries, 1)
	assert.Equal(t, gateway.Gateway_Xendit, f.deliveries[0].Gateway)
	assert.Equal(t, gateway.PaymentStatus_Failed, f.deliveries[0].Status)
	assert.Equal(t, "pay-9", f.deliveries[0].PaymentID)
}

func TestCartWebhook_CallbackTokenAccepted(t *testing.T) {
	f := &fakeReconciler{}
	mux := newTestServer(f).Mux()

	body := []byte(`{"id":"pay-10","external_id":"TPQ-CART-10","status":"PAID","amount":50000}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/cart", bytes.NewReader(body))
	req.Header.Set("x-gateway", "xendit")
	req.Header.Set("x-callback-token", testXenditToken)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.deliveries, 1)
	assert.Equal(t, gateway.PaymentStatus_Success, f.deliveries[0].Status)
}

func TestCartWebhook_UnsupportedGateway(t *testing.T) {
	f := &fakeReconciler{}
	mux := newTestServer(f).Mux()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/cart", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("x-gateway", "paypal")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "unsupported gateway", resp.Message)
	assert.Empty(t, f.deliveries)
}

func TestCartWebhook_XenditBadSignature(t *testing.T) {
	f := &fakeReconciler{}
	mux := newTestServer(f).Mux()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/cart", bytes.NewReader([]byte(`{"id":"pay-9","status":"PAID"}`)))
	req.Header.Set("x-gateway", "xendit")
	req.Header.Set("x-signature", "deadbeef")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.deliveries)
}

func TestWebhook_DuplicateDeliveryReturns200(t *testing.T) {
	f := &fakeReconciler{result: &reconcile.Result{OrderID: "TPQ-SPP-001", Duplicate: true}}
	mux := newTestServer(f).Mux()

	body := midtransBody("TPQ-SPP-001", "settlement", "200", "150000.00", testServerKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/midtrans", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "duplicate delivery", resp.Message)
}

func TestWebhook_OrderNotFound(t *testing.T) {
	f := &fakeReconciler{err: reconcile.ErrOrderNotFound}
	mux := newTestServer(f).Mux()

	body := midtransBody("TPQ-MISSING", "settlement", "200", "150000.00", testServerKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/midtrans", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_InternalErrorReturns500(t *testing.T) {
	f := &fakeReconciler{err: errors.New("db unavailable")}
	mux := newTestServer(f).Mux()

	body := midtransBody("TPQ-SPP-001", "settlement", "200", "150000.00", testServerKey)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/midtrans", bytes.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestCheckout_CreatesPendingOrder(t *testing.T) {
	c := &fakeCheckout{order: &order.Order{
		ID:     "TPQ-CART-AB12CD34EF",
		Total:  175000,
		Status: order.OrderStatus_Pending,
	}}
	mux := newTestServerWithCheckout(&fakeReconciler{}, c).Mux()

	body := []byte(`{
		"customer_name": "Bu Siti",
		"customer_phone": "+628123456789",
		"items": [
			{"type": "SPP", "name": "SPP Agustus", "amount": 150000, "student_id": "std-1", "month": "2026-08"},
			{"type": "DONATION", "name": "Infaq Pembangunan", "amount": 25000}
		]
	}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, c.requests, 1)
	assert.Equal(t, "Bu Siti", c.requests[0].CustomerName)
	assert.Len(t, c.requests[0].Items, 2)

	var created order.Order
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "TPQ-CART-AB12CD34EF", created.ID)
	assert.Equal(t, order.OrderStatus_Pending, created.Status)
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	c := &fakeCheckout{err: checkout.ErrEmptyCart}
	mux := newTestServerWithCheckout(&fakeReconciler{}, c).Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader([]byte(`{"items":[]}`))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestCheckout_InvalidDiscountRejected(t *testing.T) {
	c := &fakeCheckout{err: checkout.ErrInvalidDiscount}
	mux := newTestServerWithCheckout(&fakeReconciler{}, c).Mux()

	body := []byte(`{"items":[{"type":"SPP","name":"SPP","amount":150000}],"discount":200000}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestCheckout_MalformedBody(t *testing.T) {
	c := &fakeCheckout{}
	mux := newTestServerWithCheckout(&fakeReconciler{}, c).Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader([]byte("{"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, c.requests)
}

func TestOrderDetail_Found(t *testing.T) {
	c := &fakeCheckout{detail: &checkout.Detail{
		Order: &order.Order{ID: "TPQ-CART-AB12CD34EF", Status: order.OrderStatus_Paid},
	}}
	mux := newTestServerWithCheckout(&fakeReconciler{}, c).Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/TPQ-CART-AB12CD34EF", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var detail checkout.Detail
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "TPQ-CART-AB12CD34EF", detail.Order.ID)
	assert.Equal(t, order.OrderStatus_Paid, detail.Order.Status)
}

func TestOrderDetail_NotFound(t *testing.T) {
	c := &fakeCheckout{err: checkout.ErrOrderNotFound}
	mux := newTestServerWithCheckout(&fakeReconciler{}, c).Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/TPQ-MISSING", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestServer(&fakeReconciler{}).Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
