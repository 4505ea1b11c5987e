// Command dashboard-proxy fronts the PropWatch scraping backend for local
// dashboards: it proxies API reads through the cached client, keeps live
// health and stats snapshots via polling, and exposes Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/propwatch/propwatch-go/pkg/api"
	"github.com/propwatch/propwatch-go/pkg/logging"
	"github.com/propwatch/propwatch-go/pkg/poll"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(logging.FromEnv()).With().
		Str("component", "dashboard-proxy").Logger()

	backendURL := getEnv("BACKEND_URL", "http://localhost:8000")
	port := getEnv("PORT", "8080")
	apiKey := os.Getenv("BACKEND_API_KEY")
	redisURL := os.Getenv("REDIS_URL")

	cfg := api.DefaultConfig(backendURL)
	cfg.APIKey = apiKey

	if redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
		}
		cfg.Redis = redisClient
		logger.Info().Str("redis", redisURL).Msg("Response caching enabled")
	}

	client, err := api.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create backend client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthPoller := poll.New(client.Health, pollerOptions[api.HealthStatus](10*time.Second, logger))
	healthPoller.Start(ctx)
	defer healthPoller.Stop()

	statsPoller := poll.New(client.StatsOverview, pollerOptions[api.StatsOverview](30*time.Second, logger))
	statsPoller.Start(ctx)
	defer statsPoller.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/summary", summaryHandler(healthPoller, statsPoller))
	mux.HandleFunc("/api/", proxyHandler(client))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("backend", backendURL).
		Msg("Starting dashboard proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func pollerOptions[T any](interval time.Duration, logger zerolog.Logger) poll.Options[T] {
	opts := poll.DefaultOptions[T]()
	opts.Interval = interval
	opts.Logger = logger
	return opts
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// summary is the JSON snapshot the dashboard header renders from.
type summary struct {
	Backend backendSection `json:"backend"`
	Stats   statsSection   `json:"stats"`
}

type backendSection struct {
	Reachable bool              `json:"reachable"`
	Error     string            `json:"error,omitempty"`
	Health    *api.HealthStatus `json:"health,omitempty"`
}

type statsSection struct {
	Loading  bool               `json:"loading"`
	Error    string             `json:"error,omitempty"`
	Overview *api.StatsOverview `json:"overview,omitempty"`
}

func summaryHandler(healthPoller *poll.Poller[api.HealthStatus], statsPoller *poll.Poller[api.StatsOverview]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := healthPoller.State()
		stats := statsPoller.State()

		resp := summary{
			Backend: backendSection{
				Reachable: health.Err == "" && health.Data != nil,
				Error:     health.Err,
				Health:    health.Data,
			},
			Stats: statsSection{
				Loading:  stats.Loading && stats.Data == nil,
				Error:    stats.Err,
				Overview: stats.Data,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// proxyHandler forwards GET requests to the backend through the cached
// client, so dashboards hitting the proxy share one cache.
func proxyHandler(client *api.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "only GET is proxied", http.StatusMethodNotAllowed)
			return
		}

		resp, err := client.Request(r.Context(), http.MethodGet, r.URL.Path, nil, r.URL.Query())
		if err != nil {
			status := http.StatusBadGateway
			var apiErr *api.APIError
			if errors.As(err, &apiErr) {
				status = apiErr.StatusCode
			} else if api.IsTimeout(err) {
				status = http.StatusGatewayTimeout
			}
			writeJSONError(w, status, err.Error())
			return
		}

		if resp.FromCache() {
			w.Header().Set("X-Proxy-Cache", "hit")
		}
		if resp.IsJSON {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(resp.StatusCode)
			w.Write(resp.Raw)
			return
		}

		if contentType := resp.Header.Get("Content-Type"); contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write(resp.Body)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
