// Package sensor reads temperature and humidity from the session's selected
// source: a simulated sensor, a local JSON file or a remote JSON endpoint.
package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"mushtrack/internal/models"
)

const (
	UserAgent      = "MushTrack Sensor Client/1.0.0"
	RequestTimeout = 5 * time.Second

	// MaxPayloadBytes bounds a file or remote sensor payload.
	MaxPayloadBytes = 1 << 20
)

var ErrPayloadTooLarge = errors.New("sensor payload too large")

// Ranges of the simulated sensor.
const (
	SimMinTemperature = 25.0
	SimMaxTemperature = 32.0
	SimMinHumidity    = 75.0
	SimMaxHumidity    = 95.0
)

// Reader reads one sensor sample from a source.
type Reader interface {
	Read(ctx context.Context, src models.SensorSource) (models.SensorReading, error)
}

// FetchError describes a failed file or remote read.
type FetchError struct {
	Source     models.SourceKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s source: unexpected HTTP status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s source: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user in place of the reading.
func (e *FetchError) Message() string {
	switch {
	case e.Source == models.SourceFile:
		return fmt.Sprintf("Error reading local file: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d: Unable to fetch data", e.StatusCode)
	default:
		return fmt.Sprintf("Connection error: %v", e.Err)
	}
}

// Client reads from all three source kinds.
type Client struct {
	http   *resty.Client
	limit  int64
	mu     sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Client)

// WithTimeout overrides the remote request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithPayloadLimit overrides MaxPayloadBytes for file and remote reads.
func WithPayloadLimit(n int64) Option {
	return func(c *Client) {
		c.limit = n
		c.http.SetResponseBodyLimit(int(n))
	}
}

// WithRand sets the random source of the simulated sensor.
func WithRand(rng *rand.Rand) Option {
	return func(c *Client) {
		c.rng = rng
	}
}

func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetTimeout(RequestTimeout).
			SetHeader("User-Agent", UserAgent).
			SetHeader("Accept", "application/json").
			SetResponseBodyLimit(MaxPayloadBytes),
		limit:  MaxPayloadBytes,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read dispatches on the source kind. File and remote failures are returned
// as *FetchError.
func (c *Client) Read(ctx context.Context, src models.SensorSource) (models.SensorReading, error) {
	switch src.Kind {
	case models.SourceManual, "":
		return c.Simulate(), nil
	case models.SourceFile:
		return c.ReadFile(src.Path)
	case models.SourceRemote:
		return c.FetchRemote(ctx, src.URL)
	}
	return models.SensorReading{}, fmt.Errorf("unknown sensor source %q", src.Kind)
}

// Simulate returns a random reading within the simulated sensor's ranges,
// rounded to one decimal.
func (c *Client) Simulate() models.SensorReading {
	c.mu.Lock()
	temp := round1(SimMinTemperature + c.rng.Float64()*(SimMaxTemperature-SimMinTemperature))
	hum := round1(SimMinHumidity + c.rng.Float64()*(SimMaxHumidity-SimMinHumidity))
	c.mu.Unlock()

	return models.SensorReading{
		Temperature: &temp,
		Humidity:    &hum,
		Source:      models.SourceManual,
		ReadAt:      c.now(),
	}
}

// ReadFile reads the latest sample from a local JSON file.
func (c *Client) ReadFile(path string) (models.SensorReading, error) {
	reading := models.SensorReading{Source: models.SourceFile, ReadAt: c.now()}

	data, err := c.readLimited(path)
	if err != nil {
		return reading, &FetchError{Source: models.SourceFile, Err: err}
	}
	if reading.Temperature, reading.Humidity, err = DecodePayload(data); err != nil {
		return reading, &FetchError{Source: models.SourceFile, Err: err}
	}

	c.logger.Debug("Sensor file read", zap.String("path", path), zap.Bool("available", reading.Available()))
	return reading, nil
}

func (c *Client) readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, c.limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, c.limit)
	}
	return data, nil
}

// FetchRemote makes a single GET request for the latest sample. There is no
// retry.
func (c *Client) FetchRemote(ctx context.Context, url string) (models.SensorReading, error) {
	reading := models.SensorReading{Source: models.SourceRemote, ReadAt: c.now()}

	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return reading, &FetchError{Source: models.SourceRemote, Err: err}
	}
	if resp.StatusCode() != 200 {
		return reading, &FetchError{Source: models.SourceRemote, StatusCode: resp.StatusCode()}
	}
	if reading.Temperature, reading.Humidity, err = DecodePayload(resp.Body()); err != nil {
		return reading, &FetchError{Source: models.SourceRemote, Err: err}
	}

	c.logger.Debug("Remote sensor data fetched", zap.String("url", url), zap.Bool("available", reading.Available()))
	return reading, nil
}

type samplePayload struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// DecodePayload extracts temperature and humidity from a JSON object or from
// the last element of a JSON array. Missing keys and empty arrays yield nil
// values without an error.
func DecodePayload(data []byte) (temperature, humidity *float64, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, errors.New("empty sensor payload")
	}

	switch trimmed[0] {
	case '[':
		var samples []samplePayload
		if err := json.Unmarshal(trimmed, &samples); err != nil {
			return nil, nil, fmt.Errorf("decoding sensor samples: %w", err)
		}
		if len(samples) == 0 {
			return nil, nil, nil
		}
		latest := samples[len(samples)-1]
		return latest.Temperature, latest.Humidity, nil
	case '{':
		var sample samplePayload
		if err := json.Unmarshal(trimmed, &sample); err != nil {
			return nil, nil, fmt.Errorf("decoding sensor sample: %w", err)
		}
		return sample.Temperature, sample.Humidity, nil
	}
	return nil, nil, errors.New("sensor payload must be a JSON object or array")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
