package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/orbview/internal/field"
)

var ErrEmptyCapture = errors.New("storage: nothing to capture")

// Store keeps field captures, one directory per capture.
type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type CaptureMetadata struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Timestamp time.Time   `json:"timestamp"`
	SimTime   string      `json:"sim_time,omitempty"`
	TimeScale float64     `json:"time_scale,omitempty"`
	Source    string      `json:"source,omitempty"`
	Grid      *field.Grid `json:"grid,omitempty"`
	Target    string      `json:"target,omitempty"`
	Samples   int         `json:"samples"`
	MinAccel  float64     `json:"min_accel,omitempty"`
	MaxAccel  float64     `json:"max_accel,omitempty"`
}

// Attachment is an extra file stored next to the samples, e.g. a rendered
// frame.
type Attachment struct {
	Name string
	Data string
}

// Save writes res under a fresh capture ID. The caller fills the descriptive
// fields of meta; ID, Kind, Timestamp and the sample statistics are set here.
func (s *Store) Save(res field.Result, meta CaptureMetadata, attachments ...Attachment) (string, error) {
	if res.Empty() {
		return "", ErrEmptyCapture
	}

	ts := s.now()
	runID := fmt.Sprintf("%s_%d", res.Kind, ts.UnixMilli())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Kind = res.Kind.String()
	meta.Timestamp = ts
	if res.Kind == field.KindLagrange {
		meta.Target = res.Target
	}

	header, rows := SampleTable(res)
	meta.Samples = len(rows)
	if res.Heatmap != nil {
		g := res.Heatmap.Grid
		meta.Grid = &g
		meta.MinAccel, meta.MaxAccel, _ = res.Heatmap.Range()
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "samples.csv"), header, rows); err != nil {
		return "", err
	}
	for _, a := range attachments {
		if a.Name == "" || filepath.Base(a.Name) != a.Name {
			return "", fmt.Errorf("storage: bad attachment name %q", a.Name)
		}
		if err := os.WriteFile(filepath.Join(runDir, a.Name), []byte(a.Data), 0644); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// SampleTable flattens res into a CSV header and rows.
func SampleTable(res field.Result) ([]string, [][]string) {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

	switch res.Kind {
	case field.KindVector:
		rows := make([][]string, 0, len(res.Vectors))
		for _, v := range res.Vectors {
			rows = append(rows, []string{f(v.X), f(v.Y), f(v.GX), f(v.GY)})
		}
		return []string{"x", "y", "gx", "gy"}, rows
	case field.KindHeatmap:
		rows := make([][]string, 0, res.Heatmap.Len())
		for i, col := range res.Heatmap.Values {
			for j, a := range col {
				x, y := res.Heatmap.Grid.Point(i, j)
				rows = append(rows, []string{f(x), f(y), f(a)})
			}
		}
		return []string{"x", "y", "accel"}, rows
	case field.KindLagrange:
		rows := make([][]string, 0, len(res.Lagrange))
		for _, name := range field.SortedNames(res.Lagrange) {
			p := res.Lagrange[name]
			rows = append(rows, []string{name, f(p.X), f(p.Y)})
		}
		return []string{"name", "x", "y"}, rows
	}
	return nil, nil
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

// List returns every readable capture, newest first.
func (s *Store) List() ([]CaptureMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []CaptureMetadata{}, nil
		}
		return nil, err
	}

	caps := make([]CaptureMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		caps = append(caps, *meta)
	}

	sort.Slice(caps, func(i, j int) bool {
		return caps[i].Timestamp.After(caps[j].Timestamp)
	})
	return caps, nil
}

func (s *Store) Load(id string) (*CaptureMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta CaptureMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSamples reads back the sample table of a capture: the header and
// the rows.
func (s *Store) LoadSamples(id string) ([]string, [][]string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, id, "samples.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, [][]string{}, nil
	}
	return records[0], records[1:], nil
}

// FrameAttachment wraps a rendered canvas for Save.
func FrameAttachment(svg string) Attachment {
	return Attachment{Name: "frame.svg", Data: svg}
}

// HeatmapAttachment wraps a rendered heatmap for Save.
func HeatmapAttachment(svg string) Attachment {
	return Attachment{Name: "heatmap.svg", Data: svg}
}

func TrailsAttachment(svg string) Attachment {
	return Attachment{Name: "trails.svg", Data: svg}
}
