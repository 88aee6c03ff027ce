package main

// serve.go runs the ops-only HTTP surface: /healthz, /fund and /metrics. This is
// NOT the marketplace REST API (out of scope per spec.md §1) — it is the
// small chi router the teacher's walletserver/routes/routes.go shows chi
// used for, scoped here to operational endpoints only.

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

// ServeRoute starts the ops HTTP server.
var ServeRoute = &cobra.Command{
	Use:   "serve",
	Short: "Run the ops HTTP server (/healthz, /fund, /metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := app.Config.Ops.ListenAddr
		if addr == "" {
			addr = ":8090"
		}

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/healthz", handleHealthz)
		r.Get("/fund", handleFundBalances)
		r.Handle("/metrics", app.Metrics.Handler())

		server := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		cmd.Println("ops server listening on " + addr)
		return server.ListenAndServe()
	},
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":        "ok",
		"active_nodes":  len(app.Registry.ActiveNodes()),
		"queue_depth":   app.Scheduler.QueueDepth(),
		"fund_balance":  app.Fund.Balance(),
	})
}

// handleFundBalances serves the community fund's dashboard-facing snapshot
// through the CommunityFundManager wrapper rather than reaching into
// core.CommunityFund directly, the same indirection the teacher's own
// dashboard-facing wrappers provide around their core state.
func handleFundBalances(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(app.FundManager.Balances())
}
