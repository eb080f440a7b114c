package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ray-remotestate/preorder/authz"
	"github.com/ray-remotestate/preorder/handlers"
	"github.com/ray-remotestate/preorder/middlewares"
)

type Server struct {
	Router *mux.Router
	server *http.Server
}

const (
	readTimeout       = 5 * time.Minute
	readHeaderTimeout = 30 * time.Second
	writeTimeout      = 5 * time.Minute
)

func SetupRoutes(h *handlers.Handler) *Server {
	router := mux.NewRouter()
	router.Use(middlewares.RequestLogger)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"alive": true}`)
	}).Methods("GET")
	router.HandleFunc("/auth/register", h.Register).Methods("POST")
	router.HandleFunc("/auth/login", h.Login).Methods("POST")
	router.HandleFunc("/menu/daily/{date}", h.DailyMenu).Methods("GET")
	router.HandleFunc("/vendors", h.ListVendors).Methods("GET")

	authRoutes := router.PathPrefix("/").Subrouter()
	authRoutes.Use(middlewares.AuthMiddleware(h.JWTSecret))
	guard := func(path string, op authz.Operation, fn http.HandlerFunc) *mux.Route {
		return authRoutes.Handle(path, middlewares.Authorize(op)(fn))
	}

	// vendor
	guard("/menu", authz.MenuListOwn, h.ListOwnMenu).Methods("GET")
	guard("/menu", authz.MenuCreate, h.CreateMenuItem).Methods("POST")
	guard("/menu/{id}", authz.MenuUpdate, h.UpdateMenuItem).Methods("PUT")
	guard("/menu/{id}", authz.MenuDelete, h.DeleteMenuItem).Methods("DELETE")
	guard("/orders", authz.OrderListAll, h.ListAllOrders).Methods("GET")
	guard("/orders/{id}/status", authz.OrderSetStatus, h.UpdateOrderStatus).Methods("PUT")

	// consumer
	guard("/cart/quote", authz.CartQuote, h.Quote).Methods("POST")
	guard("/orders", authz.OrderCreate, h.CreateOrder).Methods("POST")
	guard("/orders/my", authz.OrderListOwn, h.ListMyOrders).Methods("GET")
	guard("/orders/{id}", authz.OrderDelete, h.DeleteOrder).Methods("DELETE")
	guard("/payment/create-order", authz.PaymentCreateIntent, h.CreatePaymentIntent).Methods("POST")
	guard("/payment/verify", authz.PaymentVerify, h.VerifyPayment).Methods("POST")

	// any role
	guard("/payment/key", authz.PaymentKey, h.PaymentKey).Methods("GET")

	return &Server{
		Router: router,
	}
}

func (svr *Server) Run(addr string) error {
	svr.server = &http.Server{
		Addr:              addr,
		Handler:           svr.Router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
	return svr.server.ListenAndServe()
}

func (svr *Server) Shutdown(timeout time.Duration) error {
	if svr.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svr.server.Shutdown(ctx)
}
