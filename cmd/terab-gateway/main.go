// Command terab-gateway is a small example program showing how to wire a
// terab connection behind an HTTP surface: a healthz probe that opens (and
// then closes) a TCP connection to the configured server without sending any
// request, and a Prometheus scrape endpoint. It is
// not a replacement for a Terab server's own tooling, just ambient-stack
// glue in the style of orbas1's cmd/cli package (cobra + godotenv + viper +
// logrus), adapted to this client's narrower surface.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lokad/Terab/core"
	"github.com/Lokad/Terab/pkg/config"
)

var (
	log     = logrus.StandardLogger()
	metrics = core.NewCollector()
)

func main() {
	root := &cobra.Command{
		Use:           "terab-gateway",
		Short:         "Expose health and metrics for a terab client connection",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			_, err := config.LoadFromEnv()
			return err
		},
	}

	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("terab-gateway failed")
	}
}

func serveCmd() *cobra.Command {
	var addr string
	var connString string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = viper.GetString("metrics.addr")
			}
			if connString == "" {
				connString = viper.GetString("client.connection_string")
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(metrics)

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)
			r.Get("/healthz", healthHandler(connString))
			r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

			log.WithFields(logrus.Fields{"addr": addr, "terab": connString}).Info("terab-gateway listening")
			return http.ListenAndServe(addr, r)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to serve /healthz and /metrics on")
	cmd.Flags().StringVar(&connString, "terab", "", "terab server connection string")
	return cmd
}

func healthHandler(connString string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		conn, err := core.NewConnection(connString, core.WithLogger(log), core.WithMetrics(metrics))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := conn.Open(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer conn.Close()

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	}
}
