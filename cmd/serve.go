package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/config"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		env, err := initApp(cfg)
		if err != nil {
			return err
		}

		s, err := newServer(env, cfg)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(s, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newServer wires handlers to the application environment. The Foursquare
// proxy is mounted only when a key is configured.
func newServer(env *appEnv, c *config.Config) (*server, error) {
	s := &server{
		resolver:    env.Resolver,
		recommender: env.Recommender,
		taxonomy:    env.Taxonomy,
		details:     env.Google,
		sessions:    newSessionStore(env.Recommender, c.Server.SessionTTL(), c.Device.MaxAge()),
		circuits:    env.Breakers.States,
	}
	if c.Foursquare.Key != "" {
		proxy, err := newFoursquareProxy(c.Foursquare.BaseURL, c.Foursquare.Key, c.Foursquare.APIVersion, env.Gate)
		if err != nil {
			return nil, err
		}
		s.proxy = proxy
	}
	return s, nil
}

// buildRouter registers every route on a chi router.
func buildRouter(s *server, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", sessionHeader},
		ExposedHeaders: []string{sessionHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/moods", s.moods)
		r.Post("/location", s.locate)
		r.Post("/recommend", s.recommend)
		r.Post("/reroll", s.reroll)
		r.Get("/session", s.session)
		r.Get("/foursquare/places/search", s.foursquareSearch)
		r.Get("/places/google/photo/{ref}", s.googlePhoto)
		r.Get("/places/google/{id}", s.googleDetails)
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
