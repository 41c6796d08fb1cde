package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/compute"
	"github.com/san-kum/orbview/internal/config"
	"github.com/san-kum/orbview/internal/export"
	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/remote"
	"github.com/san-kum/orbview/internal/scheduler"
	"github.com/san-kum/orbview/internal/storage"
	"github.com/san-kum/orbview/internal/viz"
	"github.com/san-kum/orbview/internal/worker"
)

const au = 1.49597871e11

var (
	region  field.Grid
	planet  string
	local   bool
	outPath string
	format  string
	save    bool

	x0, y0, x1, y1 float64
	samplesN       int
)

func fieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "field [vector|heatmap|lagrange]",
		Short:     "fetch or compute one field",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"vector", "heatmap", "lagrange"},
		RunE:      runField,
	}
	f := cmd.Flags()
	f.Float64Var(&region.XMin, "xmin", -2*au, "region left edge (m)")
	f.Float64Var(&region.XMax, "xmax", 2*au, "region right edge (m)")
	f.Float64Var(&region.YMin, "ymin", -2*au, "region bottom edge (m)")
	f.Float64Var(&region.YMax, "ymax", 2*au, "region top edge (m)")
	f.Float64Var(&region.Step, "step", au/8, "sample spacing (m)")
	f.StringVar(&planet, "planet", "Earth", "secondary body for lagrange points")
	f.BoolVar(&local, "local", false, "compute locally from /state instead of the field endpoints")
	f.StringVar(&outPath, "out", "", "output file (stdout when empty)")
	f.StringVar(&format, "format", "json", "output format: json, csv or svg (heatmap only)")
	f.BoolVar(&save, "save", false, "also store the result as a capture")
	return cmd
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "plot |g| along a segment using the current body positions",
		RunE:  runProfile,
	}
	f := cmd.Flags()
	f.Float64Var(&x0, "x0", 0.1*au, "segment start x (m)")
	f.Float64Var(&y0, "y0", 0, "segment start y (m)")
	f.Float64Var(&x1, "x1", 2*au, "segment end x (m)")
	f.Float64Var(&y1, "y1", 0, "segment end y (m)")
	f.IntVar(&samplesN, "samples", 80, "samples along the segment")
	return cmd
}

func runField(cmd *cobra.Command, args []string) error {
	kind, err := field.ParseKind(args[0])
	if err != nil {
		return err
	}
	if format != "json" && format != "csv" && format != "svg" {
		return fmt.Errorf("unknown format %q", format)
	}
	if format == "svg" && kind != field.KindHeatmap {
		return fmt.Errorf("svg output is only available for heatmaps")
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, done, err := cliLogger(cfg)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Fields.Vector.Timeout)
	defer cancel()

	client := remote.NewClient(cfg.Server.BaseURL, cfg.Server.RequestTimeout, log)
	req := scheduler.Request{Kind: kind, Grid: region}

	var res field.Result
	if local || kind == field.KindLagrange {
		// lagrange needs the bodies either way to resolve the primary
		cache, err := fetchBodies(ctx, client)
		if err != nil {
			return err
		}
		req.Sources = cache.MassesAndPositions()
		req.Params = field.Params{G: cfg.Fields.G, Softening: cfg.Fields.Softening}
		if kind == field.KindLagrange {
			if req.Primary, req.Target, err = pair(cache, cfg.Bodies.Primary, planet); err != nil {
				return err
			}
		}
	}

	source := config.SourceRemote
	if local {
		source = config.SourceWorker
		res, err = worker.Compute(ctx, compute.GetBackend(), worker.Envelope{
			Kind:    req.Kind,
			Grid:    req.Grid,
			Sources: req.Sources,
			Params:  req.Params,
			Primary: req.Primary,
			Target:  req.Target,
		})
	} else {
		res, err = remote.NewFieldDispatcher(client).Fetch(ctx, req)
	}
	if err != nil {
		return err
	}
	log.WithField("kind", kind.String()).WithField("source", source).Debug("field ready")

	if save {
		st := storage.New(filepath.Join(cfg.DataDir, "captures"))
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(res, storage.CaptureMetadata{Source: source})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved capture %s\n", id)
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		file, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	return writeResult(out, res, format, viz.GetTheme(cfg.View.Theme))
}

func fetchBodies(ctx context.Context, client *remote.Client) (*bodies.Cache, error) {
	bs, err := client.State(ctx)
	if err != nil {
		return nil, err
	}
	cache := bodies.NewCache()
	cache.Refresh(bs)
	return cache, nil
}

func pair(cache *bodies.Cache, primaryName, targetName string) (bodies.Body, bodies.Body, error) {
	primary, ok := cache.Primary(primaryName)
	if !ok {
		return bodies.Body{}, bodies.Body{}, fmt.Errorf("no bodies in state")
	}
	target, ok := cache.Find(targetName)
	if !ok {
		return bodies.Body{}, bodies.Body{}, fmt.Errorf("unknown body %q", targetName)
	}
	if target.Name == primary.Name {
		return bodies.Body{}, bodies.Body{}, fmt.Errorf("%s is the primary", targetName)
	}
	return primary, target, nil
}

func writeResult(w io.Writer, res field.Result, format string, th viz.Theme) error {
	switch format {
	case "csv":
		header, rows := storage.SampleTable(res)
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	case "svg":
		_, err := io.WriteString(w, export.HeatmapToSVG(res.Heatmap, 6, th)+"\n")
		return err
	}

	var v any
	switch res.Kind {
	case field.KindVector:
		v = res.Vectors
	case field.KindHeatmap:
		v = res.Heatmap
	default:
		v = struct {
			Target string                 `json:"target"`
			Points map[string]field.Point `json:"points"`
		}{res.Target, res.Lagrange}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, done, err := cliLogger(cfg)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Fields.Vector.Timeout)
	defer cancel()

	cache, err := fetchBodies(ctx, remote.NewClient(cfg.Server.BaseURL, cfg.Server.RequestTimeout, log))
	if err != nil {
		return err
	}

	params := field.Params{G: cfg.Fields.G, Softening: cfg.Fields.Softening}
	data, err := field.Profile(ctx, compute.GetBackend(), x0, y0, x1, y1, samplesN, cache.MassesAndPositions(), params)
	if err != nil {
		return err
	}

	// plot on a log scale
	for i, g := range data {
		data[i] = math.Log10(math.Max(g, 1e-30))
	}

	fmt.Printf("bodies: %d\n", cache.Len())
	fmt.Printf("segment: (%.3f, %.3f) -> (%.3f, %.3f) AU\n\n", x0/au, y0/au, x1/au, y1/au)
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("log10 |g| (m/s²)"),
	))
	return nil
}
