package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tpq-digital/payment-service/internal/config"
	"github.com/tpq-digital/payment-service/internal/gateway"
	"github.com/tpq-digital/payment-service/internal/repo/order"
	"github.com/tpq-digital/payment-service/internal/service/checkout"
	"github.com/tpq-digital/payment-service/internal/service/reconcile"
)

// Reconciler is the seam between transport and the reconciliation service.
type Reconciler interface {
	Process(ctx context.Context, d *gateway.Delivery) (*reconcile.Result, error)
}

// Checkout creates orders from cart submissions and serves order detail.
type Checkout interface {
	Create(ctx context.Context, req *checkout.Request) (*order.Order, error)
	GetDetail(ctx context.Context, orderID string) (*checkout.Detail, error)
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Server struct {
	addr       string
	gatewayCfg *config.GatewayConfig
	reconciler Reconciler
	checkout   Checkout
}

func NewServer(addr string, gatewayCfg *config.GatewayConfig, r Reconciler, c Checkout) *Server {
	registerMetrics()
	return &Server{
		addr:       addr,
		gatewayCfg: gatewayCfg,
		reconciler: r,
		checkout:   c,
	}
}

func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/midtrans", prometheusMiddleware(s.handleMidtransWebhook))
	mux.HandleFunc("POST /webhooks/cart", prometheusMiddleware(s.handleCartWebhook))
	mux.HandleFunc("POST /checkout", prometheusMiddleware(s.handleCheckout))
	mux.HandleFunc("GET /orders/{id}", prometheusMiddleware(s.handleOrderDetail))
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", metricsHandler())
	return mux
}

func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Mux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	logrus.WithField("ADDR", s.addr).Info("HTTP:LISTENING")
	return srv.ListenAndServe()
}

func (s *Server) handleMidtransWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, false, "unreadable body")
		return
	}
	s.processMidtrans(w, r, body)
}

// handleCartWebhook serves checkout-flow callbacks; the x-gateway header
// selects the verification and mapping path.
func (s *Server) handleCartWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, false, "unreadable body")
		return
	}

	switch gateway.Gateway(r.Header.Get("x-gateway")) {
	case gateway.Gateway_Midtrans:
		s.processMidtrans(w, r, body)
	case gateway.Gateway_Xendit:
		s.processXendit(w, r, body)
	default:
		webhooksReceived.WithLabelValues("unknown", "unsupported").Inc()
		writeJSON(w, http.StatusBadRequest, false, "unsupported gateway")
	}
}

func (s *Server) processMidtrans(w http.ResponseWriter, r *http.Request, body []byte) {
	n, err := gateway.ParseMidtrans(body)
	if err != nil {
		webhooksReceived.WithLabelValues(string(gateway.Gateway_Midtrans), "malformed").Inc()
		writeJSON(w, http.StatusBadRequest, false, err.Error())
		return
	}

	ok, err := gateway.VerifyMidtrans(n, s.gatewayCfg.MidtransServerKey)
	if err != nil || !ok {
		webhooksReceived.WithLabelValues(string(gateway.Gateway_Midtrans), "rejected").Inc()
		logrus.WithFields(logrus.Fields{
			"ORDER":   n.OrderID,
			"GATEWAY": gateway.Gateway_Midtrans,
		}).Warn("WEBHOOK:SIGNATURE_REJECTED")
		writeJSON(w, http.StatusUnauthorized, false, "invalid signature")
		return
	}

	s.reconcileAndRespond(w, r, n.ToDelivery(body))
}

func (s *Server) processXendit(w http.ResponseWriter, r *http.Request, body []byte) {
	ok, err := gateway.VerifyXendit(body, r.Header.Get("x-signature"), r.Header.Get("x-callback-token"), s.gatewayCfg.XenditWebhookToken)
	if err != nil || !ok {
		webhooksReceived.WithLabelValues(string(gateway.Gateway_Xendit), "rejected").Inc()
		logrus.WithField("GATEWAY", gateway.Gateway_Xendit).Warn("WEBHOOK:SIGNATURE_REJECTED")
		writeJSON(w, http.StatusUnauthorized, false, "invalid signature")
		return
	}

	cb, err := gateway.ParseXendit(body)
	if err != nil {
		webhooksReceived.WithLabelValues(string(gateway.Gateway_Xendit), "malformed").Inc()
		writeJSON(w, http.StatusBadRequest, false, err.Error())
		return
	}

	s.reconcileAndRespond(w, r, cb.ToDelivery(body))
}

func (s *Server) reconcileAndRespond(w http.ResponseWriter, r *http.Request, d *gateway.Delivery) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	res, err := s.reconciler.Process(ctx, d)
	if err != nil {
		if errors.Is(err, reconcile.ErrOrderNotFound) {
			webhooksReceived.WithLabelValues(string(d.Gateway), "order_not_found").Inc()
			writeJSON(w, http.StatusBadRequest, false, "order not found")
			return
		}
		webhooksReceived.WithLabelValues(string(d.Gateway), "error").Inc()
		logrus.WithFields(logrus.Fields{
			"ORDER":   d.OrderID,
			"GATEWAY": d.Gateway,
		}).Errorf("reconciliation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, false, "internal error")
		return
	}

	if res.Duplicate {
		webhooksReceived.WithLabelValues(string(d.Gateway), "duplicate").Inc()
		writeJSON(w, http.StatusOK, true, "duplicate delivery")
		return
	}

	webhooksReceived.WithLabelValues(string(d.Gateway), "applied").Inc()
	writeJSON(w, http.StatusOK, true, "webhook processed")
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	req := &checkout.Request{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, false, "malformed checkout request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	o, err := s.checkout.Create(ctx, req)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) || errors.Is(err, checkout.ErrInvalidAmount) || errors.Is(err, checkout.ErrInvalidDiscount) {
			writeJSON(w, http.StatusBadRequest, false, err.Error())
			return
		}
		logrus.Errorf("checkout failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, false, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(o)
}

func (s *Server) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	detail, err := s.checkout.GetDetail(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, false, "order not found")
			return
		}
		logrus.Errorf("order detail failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, false, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

func writeJSON(w http.ResponseWriter, status int, success bool, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(webhookResponse{Success: success, Message: message})
}
