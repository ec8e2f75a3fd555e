package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/sony/gobreaker"
)

// Input is the feature vector sent to the predictor. Hour and MinuteOfDay
// reflect wall-clock at decision time, not at sensing.
type Input struct {
	Temperature  float64 `json:"temperature"`
	HumidityAir  float64 `json:"humidity_air"`
	HumiditySoil float64 `json:"humidity_soil"`
	Light        float64 `json:"light"`
	Hour         int     `json:"hour"`
	MinuteOfDay  int     `json:"minute_of_day"`
}

// Result is the predictor's answer for a single reading. It lives for one
// decision cycle and is never persisted.
type Result struct {
	PredictedTemperature float64 `json:"prediction_temp"`
	Anomaly              bool    `json:"anomaly"`
}

// Client submits a feature vector to the external predictor.
type Client interface {
	Infer(ctx context.Context, in Input) (Result, error)
}

var ErrPredictorUnavailable = errors.New("inference: predictor unavailable")

// SubprocessClient runs the predictor as a child process per call: the input
// is written as JSON to stdin, the result read as one JSON object from stdout.
// A non-zero exit, a timeout or malformed output all count as failures toward
// the circuit breaker; while the breaker is open calls fail fast.
type SubprocessClient struct {
	interpreter string
	script      string
	workDir     string
	timeout     time.Duration
	cb          *gobreaker.CircuitBreaker
}

type Config struct {
	Interpreter string        // e.g. "python3"
	Script      string        // predictor script path
	WorkDir     string        // model files are resolved relative to this
	Timeout     time.Duration // bounded wait per call
}

func NewSubprocessClient(cfg Config) (*SubprocessClient, error) {
	if cfg.Interpreter == "" || cfg.Script == "" {
		return nil, errors.New("inference: interpreter and script are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "predictor",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
	return &SubprocessClient{
		interpreter: cfg.Interpreter,
		script:      cfg.Script,
		workDir:     cfg.WorkDir,
		timeout:     timeout,
		cb:          cb,
	}, nil
}

func (c *SubprocessClient) Infer(ctx context.Context, in Input) (Result, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.run(ctx, in)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Result{}, fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
		}
		return Result{}, err
	}
	return out.(Result), nil
}

func (c *SubprocessClient) run(ctx context.Context, in Input) (Result, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return Result{}, fmt.Errorf("inference: marshal input: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, c.interpreter, c.script)
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return Result{}, fmt.Errorf("inference: predictor timed out after %s", c.timeout)
		}
		return Result{}, fmt.Errorf("inference: predictor exited: %v (stderr: %s)", err, stderr.String())
	}

	var res Result
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &res); err != nil {
		return Result{}, fmt.Errorf("inference: malformed predictor output: %w", err)
	}
	return res, nil
}
