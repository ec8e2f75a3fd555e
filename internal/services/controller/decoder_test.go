package controller

import (
	"errors"
	"testing"
	"time"
)

var decodeNow = time.Date(2026, 5, 2, 9, 15, 0, 0, time.UTC)

func TestDecodeReadingComplete(t *testing.T) {
	payload := []byte(`{"temperatura":40,"humedad_aire":50,"humedad_suelo_raw":300,"luz_lux":800}`)

	r, err := DecodeReading("gh-1", payload, decodeNow)
	if err != nil {
		t.Fatalf("DecodeReading: %v", err)
	}
	if r.GreenhouseID != "gh-1" || r.Temperature != 40 || r.HumidityAir != 50 || r.HumiditySoil != 300 || r.Light != 800 {
		t.Errorf("unexpected reading: %+v", r)
	}
	if !r.Timestamp.Equal(decodeNow) {
		t.Errorf("timestamp = %v, want decode-time clock", r.Timestamp)
	}
}

func TestDecodeReadingMalformedJSON(t *testing.T) {
	_, err := DecodeReading("gh-1", []byte(`{not json`), decodeNow)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestDecodeReadingMissingFields(t *testing.T) {
	payloads := map[string]string{
		"no temperature": `{"humedad_aire":50,"humedad_suelo_raw":300,"luz_lux":800}`,
		"null humidity":  `{"temperatura":40,"humedad_aire":null,"humedad_suelo_raw":300,"luz_lux":800}`,
		"no soil":        `{"temperatura":40,"humedad_aire":50,"luz_lux":800}`,
		"no light":       `{"temperatura":40,"humedad_aire":50,"humedad_suelo_raw":300}`,
		"empty object":   `{}`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeReading("gh-1", []byte(payload), decodeNow)
			if !errors.Is(err, ErrIncompleteReading) {
				t.Fatalf("err = %v, want ErrIncompleteReading", err)
			}
		})
	}
}

func TestDecodeReadingStringTimestamp(t *testing.T) {
	payload := []byte(`{"temperatura":20,"humedad_aire":50,"humedad_suelo_raw":300,"luz_lux":800,"timestamp":"2026-05-02T08:00:00Z"}`)

	r, err := DecodeReading("gh-1", payload, decodeNow)
	if err != nil {
		t.Fatalf("DecodeReading: %v", err)
	}
	want := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", r.Timestamp, want)
	}
}

func TestDecodeReadingUnixTimestamp(t *testing.T) {
	payload := []byte(`{"temperatura":20,"humedad_aire":50,"humedad_suelo_raw":300,"luz_lux":800,"timestamp":1777975200}`)

	r, err := DecodeReading("gh-1", payload, decodeNow)
	if err != nil {
		t.Fatalf("DecodeReading: %v", err)
	}
	if r.Timestamp.Unix() != 1777975200 {
		t.Errorf("timestamp = %v, want unix 1777975200", r.Timestamp)
	}
}

func TestDecodeReadingBadTimestampFallsBack(t *testing.T) {
	payload := []byte(`{"temperatura":20,"humedad_aire":50,"humedad_suelo_raw":300,"luz_lux":800,"timestamp":"yesterday"}`)

	r, err := DecodeReading("gh-1", payload, decodeNow)
	if err != nil {
		t.Fatalf("a malformed timestamp must not fail the decode: %v", err)
	}
	if !r.Timestamp.Equal(decodeNow) {
		t.Errorf("timestamp = %v, want decode-time fallback", r.Timestamp)
	}
}
