package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenklok/greenhouse-core/internal/services/monitor"
	"github.com/greenklok/greenhouse-core/pkg/mailer"
	"github.com/greenklok/greenhouse-core/pkg/mqttclient"
	"github.com/greenklok/greenhouse-core/pkg/topics"
)

func mustEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	if def != "" {
		return def
	}
	log.Fatalf("missing required env %s", k)
	return ""
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvDuration(k string, d time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			return dur
		}
	}
	return d
}

func main() {
	host := mustEnv("MQTT_HOST", "")
	port := getenvInt("MQTT_PORT", 1883)
	user := getenv("MQTT_USER", "")
	pass := getenv("MQTT_PASSWORD", "")
	clientID := getenv("MQTT_CLIENTID", "greenhouse-monitor")
	alertTo := mustEnv("ALERT_EMAIL", "")
	httpPort := getenv("HTTP_PORT", "8081")

	cfg := monitor.Config{
		StaleThreshold:   getenvDuration("STALE_THRESHOLD", 5*time.Minute),
		CheckInterval:    getenvDuration("CHECK_INTERVAL", time.Minute),
		ReminderInterval: getenvDuration("REMINDER_INTERVAL", 2*time.Hour),
		AlertTo:          alertTo,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := mqttclient.NewConn(&mqttclient.BrokerConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: pass,
		ClientID: clientID,
	}, ctx)
	if err != nil {
		log.Fatalf("MQTT connect error: %v", err)
	}

	telemetryFilter, err := topics.Filter(topics.SensorData)
	if err != nil {
		log.Fatalf("topic filter: %v", err)
	}
	consumer := mqttclient.NewConsumer(client, telemetryFilter, 0, nil)

	smtp := mailer.NewSMTP(
		getenv("SMTP_SERVER", "smtp.gmail.com"),
		getenvInt("SMTP_PORT", 587),
		getenv("SMTP_USER", ""),
		getenv("SMTP_PASSWORD", ""),
		getenv("SMTP_FROM", ""),
	)

	mon, err := monitor.NewMonitor(consumer, smtp, cfg)
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	mux.Handle("/metrics", promhttp.Handler())
	httpSrv := &http.Server{Addr: ":" + httpPort, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve error: %v", err)
		}
	}()

	go mon.Start(ctx)
	log.Printf("monitor: watching %s (stale=%s check=%s reminder=%s)",
		telemetryFilter, cfg.StaleThreshold, cfg.CheckInterval, cfg.ReminderInterval)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Println("shutting down...")
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer scancel()
	_ = httpSrv.Shutdown(sctx)
	time.Sleep(300 * time.Millisecond)
}
