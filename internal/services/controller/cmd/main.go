package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenklok/greenhouse-core/internal/services/controller"
	"github.com/greenklok/greenhouse-core/internal/services/inference"
	"github.com/greenklok/greenhouse-core/internal/services/persistence"
	"github.com/greenklok/greenhouse-core/pkg/mailer"
	"github.com/greenklok/greenhouse-core/pkg/mqttclient"
	"github.com/greenklok/greenhouse-core/pkg/topics"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- MQTT ----
	client, err := mqttclient.NewConn(&mqttclient.BrokerConfig{
		Host:     cfg.BrokerHost,
		Port:     cfg.BrokerPort,
		User:     cfg.BrokerUser,
		Password: cfg.BrokerPassword,
		ClientID: cfg.BrokerClientID,
	}, ctx)
	if err != nil {
		log.Fatalf("MQTT connect error: %v", err)
	}

	telemetryFilter, err := topics.Filter(topics.SensorData)
	if err != nil {
		log.Fatalf("topic filter: %v", err)
	}
	consumer := mqttclient.NewConsumer(client, telemetryFilter, 1, nil)
	publisher := mqttclient.NewPublisher(client)

	// ---- Reading store ----
	store, err := persistence.NewStore(persistence.InfluxConfig{
		InfluxURL:    cfg.InfluxURL,
		InfluxToken:  cfg.InfluxToken,
		InfluxOrg:    cfg.InfluxOrg,
		InfluxBucket: cfg.InfluxBucket,
		Measurement:  cfg.Measurement,
	})
	if err != nil {
		log.Fatalf("influx store: %v", err)
	}

	// ---- Predictor ----
	predictor, err := inference.NewSubprocessClient(inference.Config{
		Interpreter: cfg.PredictorInterpreter,
		Script:      cfg.PredictorScript,
		WorkDir:     cfg.PredictorWorkDir,
		Timeout:     cfg.InferenceTimeout,
	})
	if err != nil {
		log.Fatalf("predictor client: %v", err)
	}

	// ---- Alerts ----
	smtp := mailer.NewSMTP(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	alerts := controller.NewDispatcher(smtp, cfg.AlertTo, cfg.AlertCooldown)

	// ---- Decision loop ----
	svc, err := controller.NewService(consumer, store, predictor, controller.NewActuator(publisher), alerts, controller.Config{
		ThermalHighC: cfg.ThermalHighC,
		ThermalLowC:  cfg.ThermalLowC,
		SoilRawMin:   cfg.SoilRawMin,
		SoilRawMax:   cfg.SoilRawMax,
		DedupTTL:     cfg.DedupTTL,
	})
	if err != nil {
		log.Fatalf("controller: %v", err)
	}

	// ---- HTTP: health, metrics, latest data, manual irrigation ----
	mux := http.NewServeMux()
	mux.Handle("/healthz", controller.NewHealthHandler(client, store))
	mux.Handle("/readyz", controller.NewReadyHandler(client, store, 30*time.Second))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/data/latest", controller.NewLatestDataHandler(store))
	mux.Handle("/irrigation/start", controller.NewIrrigationHandler(controller.NewIrrigationPublisher(publisher)))

	httpSrv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux}
	go func() {
		log.Printf("controller: HTTP on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve error: %v", err)
		}
	}()

	go svc.Start(ctx)
	log.Printf("controller: consuming %s (thermal high=%.1fC low=%.1fC, cooldown=%s)",
		telemetryFilter, cfg.ThermalHighC, cfg.ThermalLowC, cfg.AlertCooldown)

	// ---- graceful shutdown ----
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
