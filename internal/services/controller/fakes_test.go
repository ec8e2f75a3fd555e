package controller

import (
	"context"
	"sync"

	"github.com/greenklok/greenhouse-core/internal/model/messages"
	"github.com/greenklok/greenhouse-core/internal/services/inference"
)

// fakePublisher records published commands for assertions.
type fakePublisher struct {
	mu       sync.Mutex
	Topics   []string
	Payloads []string
	Err      error
	Closed   bool
}

func (f *fakePublisher) PublishTo(topic string, qos byte, retained bool, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Topics = append(f.Topics, topic)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *fakePublisher) Close() { f.Closed = true }

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Payloads))
	copy(out, f.Payloads)
	return out
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// fakeMailer records transmissions and can simulate a degraded mail path.
type fakeMailer struct {
	mu   sync.Mutex
	Sent []sentMail
	Err  error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, sentMail{To: to, Subject: subject, Body: body})
	return f.Err
}

func (f *fakeMailer) sent() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.Sent))
	copy(out, f.Sent)
	return out
}

// fakeStore records persisted readings.
type fakeStore struct {
	mu       sync.Mutex
	Readings []messages.SensorReading
	Err      error
}

func (f *fakeStore) InsertReading(ctx context.Context, r messages.SensorReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Readings = append(f.Readings, r)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Readings)
}

// fakePredictor returns a canned result or error.
type fakePredictor struct {
	mu     sync.Mutex
	Result inference.Result
	Err    error
	Calls  int
}

func (f *fakePredictor) Infer(ctx context.Context, in inference.Input) (inference.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return inference.Result{}, f.Err
	}
	return f.Result, nil
}

func (f *fakePredictor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}
