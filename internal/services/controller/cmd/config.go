package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BrokerHost     string
	BrokerPort     int
	BrokerUser     string
	BrokerPassword string
	BrokerClientID string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	Measurement  string

	PredictorInterpreter string
	PredictorScript      string
	PredictorWorkDir     string
	InferenceTimeout     time.Duration

	ThermalHighC float64
	ThermalLowC  float64
	SoilRawMin   float64
	SoilRawMax   float64
	DedupTTL     time.Duration

	AlertTo       string
	AlertCooldown time.Duration
	SMTPServer    string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFrom      string

	HTTPPort string
}

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

func getenvFloat(k string, d float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64); err == nil {
			return f
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

func loadConfig() Config {
	return Config{
		BrokerHost:     mustEnv("MQTT_HOST", ""),
		BrokerPort:     getenvInt("MQTT_PORT", 1883),
		BrokerUser:     getenv("MQTT_USER", ""),
		BrokerPassword: getenv("MQTT_PASSWORD", ""),
		BrokerClientID: getenv("MQTT_CLIENTID", "greenhouse-controller"),

		InfluxURL:    getenv("INFLUX_URL", "http://influxdb:8086"),
		InfluxToken:  mustEnv("INFLUX_TOKEN", ""),
		InfluxOrg:    getenv("INFLUX_ORG", "greenklok"),
		InfluxBucket: getenv("INFLUX_BUCKET", "greenhouse"),
		Measurement:  getenv("INFLUX_MEASUREMENT", "sensor_reading"),

		PredictorInterpreter: getenv("PREDICTOR_INTERPRETER", "python3"),
		PredictorScript:      getenv("PREDICTOR_SCRIPT", "ai_predict.py"),
		PredictorWorkDir:     getenv("PREDICTOR_WORKDIR", ""),
		InferenceTimeout:     getenvDuration("INFERENCE_TIMEOUT", 5*time.Second),

		ThermalHighC: getenvFloat("THERMAL_HIGH_C", 30),
		ThermalLowC:  getenvFloat("THERMAL_LOW_C", 10),
		SoilRawMin:   getenvFloat("SOIL_RAW_MIN", 0),
		SoilRawMax:   getenvFloat("SOIL_RAW_MAX", 4095),
		DedupTTL:     getenvDuration("DEDUP_TTL", 10*time.Minute),

		AlertTo:       mustEnv("ALERT_EMAIL", ""),
		AlertCooldown: getenvDuration("ALERT_COOLDOWN", 30*time.Minute),
		SMTPServer:    getenv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:      getenvInt("SMTP_PORT", 587),
		SMTPUser:      getenv("SMTP_USER", ""),
		SMTPPassword:  getenv("SMTP_PASSWORD", ""),
		SMTPFrom:      getenv("SMTP_FROM", ""),

		HTTPPort: getenv("HTTP_PORT", "8080"),
	}
}
