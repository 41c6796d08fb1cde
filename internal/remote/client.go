// Package remote talks to the simulation service: body state, simulation
// clock and time scale, plus the field-query endpoints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/field"
	"github.com/sirupsen/logrus"
)

var ErrStatus = errors.New("remote: unexpected status")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote: %s returned %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("remote: %s returned %d: %s", e.Endpoint, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

type Client struct {
	BaseURL string
	HTTP    *http.Client
	log     logrus.FieldLogger
}

func NewClient(baseURL string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", endpoint, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"elapsed":  time.Since(start),
	}).Debug("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// State fetches the current ordered body list.
func (c *Client) State(ctx context.Context) ([]bodies.Body, error) {
	var bs []bodies.Body
	if err := c.do(ctx, http.MethodGet, "/state", nil, &bs); err != nil {
		return nil, err
	}
	return bs, nil
}

func (c *Client) Time(ctx context.Context) (SimTime, error) {
	var t SimTime
	err := c.do(ctx, http.MethodGet, "/time", nil, &t)
	return t, err
}

func (c *Client) SetTimeScale(ctx context.Context, scale float64) error {
	return c.do(ctx, http.MethodPost, "/set_time_scale", map[string]float64{"scale": scale}, nil)
}

type region struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
	Step float64 `json:"step"`
}

func regionOf(g field.Grid) region {
	return region{XMin: g.XMin, XMax: g.XMax, YMin: g.YMin, YMax: g.YMax, Step: g.Step}
}

// VectorField asks the service to sample the field over grid. The service
// chooses the exact sample positions; each vector carries its own.
func (c *Client) VectorField(ctx context.Context, grid field.Grid) ([]field.Vector, error) {
	var out struct {
		Vectors [][]float64 `json:"vectors"`
	}
	if err := c.do(ctx, http.MethodPost, "/vector_field", regionOf(grid), &out); err != nil {
		return nil, err
	}
	vs := make([]field.Vector, 0, len(out.Vectors))
	for i, v := range out.Vectors {
		if len(v) != 4 {
			return nil, fmt.Errorf("decode /vector_field: entry %d has %d values", i, len(v))
		}
		vs = append(vs, field.Vector{X: v[0], Y: v[1], GX: v[2], GY: v[3]})
	}
	return vs, nil
}

// AccelHeatmap returns |a| indexed [i][j] over grid.
func (c *Client) AccelHeatmap(ctx context.Context, grid field.Grid) (*field.Heatmap, error) {
	var out struct {
		Grid [][]float64 `json:"grid"`
	}
	if err := c.do(ctx, http.MethodPost, "/accel_heatmap", regionOf(grid), &out); err != nil {
		return nil, err
	}
	return &field.Heatmap{Grid: grid, Values: out.Grid}, nil
}

func (c *Client) Lagrange(ctx context.Context, planet string) (map[string]field.Point, error) {
	var out struct {
		Points map[string][]float64 `json:"points"`
	}
	if err := c.do(ctx, http.MethodPost, "/lagrange", map[string]string{"planet": planet}, &out); err != nil {
		return nil, err
	}
	pts := make(map[string]field.Point, len(out.Points))
	for name, p := range out.Points {
		if len(p) != 2 {
			return nil, fmt.Errorf("decode /lagrange: %s has %d values", name, len(p))
		}
		pts[name] = field.Point{X: p[0], Y: p[1]}
	}
	return pts, nil
}
