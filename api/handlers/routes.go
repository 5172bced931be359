package handlers

import "net/http"

// Router bundles the service handlers.
type Router struct {
	Transfer  *TransferHandler
	Operator  *OperatorHandler
	Call      *CallHandler
	Analytics *AnalyticsHandler
	Health    *HealthHandler
	WS        *WSHandler

	Version   string
	BuildTime string
	GitCommit string
}

// Mux registers every route on a fresh ServeMux.
func (rt *Router) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", rt.Health.HandleHealth)
	mux.HandleFunc("GET /ready", rt.Health.HandleReady)
	mux.HandleFunc("GET /version", rt.Health.HandleVersion(rt.Version, rt.BuildTime, rt.GitCommit))

	mux.HandleFunc("POST /api/v1/transfers", rt.Transfer.HandleInitiate)
	mux.HandleFunc("GET /api/v1/transfers", rt.Transfer.HandleListActive)
	mux.HandleFunc("GET /api/v1/transfers/{id}", rt.Transfer.HandleStatus)
	mux.HandleFunc("POST /api/v1/transfers/{id}/join", rt.Transfer.HandleJoin)
	mux.HandleFunc("POST /api/v1/transfers/{id}/complete", rt.Transfer.HandleComplete)
	mux.HandleFunc("POST /api/v1/transfers/{id}/cancel", rt.Transfer.HandleCancel)

	mux.HandleFunc("POST /api/v1/operators", rt.Operator.HandleRegister)
	mux.HandleFunc("GET /api/v1/operators", rt.Operator.HandleList)
	mux.HandleFunc("GET /api/v1/operators/{id}", rt.Operator.HandleGet)
	mux.HandleFunc("POST /api/v1/operators/{id}/heartbeat", rt.Operator.HandleHeartbeat)
	mux.HandleFunc("PUT /api/v1/operators/{id}/availability", rt.Operator.HandleAvailability)
	mux.HandleFunc("GET /api/v1/operators/{id}/availability", rt.Operator.HandleLookup)
	mux.HandleFunc("POST /api/v1/operators/{id}/offline", rt.Operator.HandleOffline)

	mux.HandleFunc("POST /api/v1/calls", rt.Call.HandleCreate)
	mux.HandleFunc("GET /api/v1/calls", rt.Call.HandleListActive)
	mux.HandleFunc("GET /api/v1/calls/{id}", rt.Call.HandleGet)
	mux.HandleFunc("POST /api/v1/calls/{id}/end", rt.Call.HandleEnd)
	mux.HandleFunc("GET /api/v1/calls/{id}/transfers", rt.Call.HandleTransferHistory)

	mux.HandleFunc("GET /api/v1/analytics/dashboard", rt.Analytics.HandleDashboard)

	if rt.WS != nil {
		mux.HandleFunc("GET /api/v1/ws", rt.WS.HandleConnect)
	}

	return mux
}
