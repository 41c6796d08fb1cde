package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/orbview/internal/compute"
	"github.com/san-kum/orbview/internal/config"
	"github.com/san-kum/orbview/internal/gui"
	"github.com/san-kum/orbview/internal/logging"
	"github.com/san-kum/orbview/internal/metrics"
	"github.com/san-kum/orbview/internal/remote"
	"github.com/san-kum/orbview/internal/scheduler"
	"github.com/san-kum/orbview/internal/session"
	"github.com/san-kum/orbview/internal/storage"
	"github.com/san-kum/orbview/internal/tui"
	"github.com/san-kum/orbview/internal/worker"
)

var (
	configFile  string
	serverURL   string
	dataDir     string
	logFile     string
	logLevel    string
	metricsAddr string
	preset      string
	offload     bool
	guiWidth    int
	guiHeight   int
)

// main registers the commands and runs the interactive client when no
// subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:          "orbview",
		Short:        "terminal client for an n-body orbital simulation",
		SilenceUsage: true,
		RunE:         runInteractive,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&serverURL, "server", config.DefaultBaseURL, "simulation service base url")
	pf.StringVar(&dataDir, "data", ".orbview", "data directory")
	pf.StringVar(&logFile, "log-file", "", "log file (interactive mode discards logs when empty)")
	pf.StringVar(&logLevel, "log-level", "info", "log level")

	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	rootCmd.Flags().StringVar(&preset, "preset", "", "initial view preset")
	rootCmd.Flags().BoolVar(&offload, "offload", false, "compute every field locally on the worker")

	timeScaleCmd := &cobra.Command{
		Use:   "time-scale [value]",
		Short: "set the simulation time scale",
		Args:  cobra.ExactArgs(1),
		RunE:  setTimeScale,
	}

	capturesCmd := &cobra.Command{
		Use:   "captures",
		Short: "list saved field captures",
		RunE:  listCaptures,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list view presets",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSCALE\tCENTER\tFOLLOW")
			for _, name := range config.ListPresets() {
				p, _ := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%.3g m/px\t(%.3g, %.3g)\t%s\n", name, p.Scale, p.CenterX, p.CenterY, p.Follow)
			}
			w.Flush()
		},
	}

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "open the orbit view in a raylib window",
		RunE:  runGUI,
	}
	guiCmd.Flags().IntVar(&guiWidth, "width", 1280, "window width")
	guiCmd.Flags().IntVar(&guiHeight, "height", 720, "window height")
	guiCmd.Flags().StringVar(&preset, "preset", "", "initial view preset")
	guiCmd.Flags().BoolVar(&offload, "offload", false, "compute every field locally on the worker")
	guiCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	rootCmd.AddCommand(fieldCmd(), profileCmd(), timeScaleCmd, capturesCmd, presetsCmd, guiCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, then applies the flags the user set
// explicitly. It returns the body the chosen preset follows, if any.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server.BaseURL = serverURL
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flags.Changed("offload") && offload {
		cfg.SetSource(config.SourceWorker)
	}

	var follow string
	if preset != "" {
		name, ok := cfg.ApplyPreset(preset)
		if !ok {
			return nil, "", fmt.Errorf("unknown preset %q (have %v)", preset, config.ListPresets())
		}
		follow = name
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, follow, nil
}

// cliLogger logs to stderr unless a log file is configured.
func cliLogger(cfg *config.Config) (*logrus.Logger, func(), error) {
	log, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { closer.Close() }, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, follow, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// the terminal belongs to the TUI, so without a log file logs are dropped
	log, closer, err := logging.New(cfg.Log, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	client := remote.NewClient(cfg.Server.BaseURL, cfg.Server.RequestTimeout, log.WithField("component", "remote"))
	sess, stop, err := startSession(ctx, cfg, client, log)
	if err != nil {
		return err
	}
	defer stop()
	if follow != "" {
		sess.Follow(follow)
	}

	log.WithFields(logrus.Fields{
		"server":  cfg.Server.BaseURL,
		"backend": compute.GetBackend().Name(),
	}).Info("orbview starting")

	model := tui.New(tui.Options{
		Config:  cfg,
		Session: sess,
		Backend: client,
		Store:   storage.New(filepath.Join(cfg.DataDir, "captures")),
		Logger:  log,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// startSession wires the metrics, the local worker and both field
// dispatchers into a session. stop tears them down in reverse order.
func startSession(ctx context.Context, cfg *config.Config, client *remote.Client, log *logrus.Logger) (*session.Session, func(), error) {
	reg := prometheus.NewRegistry()
	stats, err := metrics.NewScheduler(reg)
	if err != nil {
		return nil, nil, err
	}
	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		srv = serveMetrics(cfg.Metrics.Addr, reg, log)
	}

	w := worker.New(compute.GetBackend(), worker.DefaultQueue, log.WithField("component", "worker"))
	w.Start(ctx)

	sess, err := session.New(cfg, session.Options{
		Logger:  log,
		Metrics: stats,
		Dispatchers: map[string]scheduler.Dispatcher{
			config.SourceRemote: remote.NewFieldDispatcher(client),
			config.SourceWorker: w,
		},
	})
	if err != nil {
		w.Close()
		if srv != nil {
			srv.Shutdown(context.Background())
		}
		return nil, nil, err
	}
	stop := func() {
		sess.Close()
		w.Close()
		if srv != nil {
			srv.Shutdown(context.Background())
		}
	}
	return sess, stop, nil
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, follow, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, done, err := cliLogger(cfg)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	client := remote.NewClient(cfg.Server.BaseURL, cfg.Server.RequestTimeout, log.WithField("component", "remote"))
	sess, stop, err := startSession(ctx, cfg, client, log)
	if err != nil {
		return err
	}
	defer stop()
	if follow != "" {
		sess.Follow(follow)
	}

	log.WithFields(logrus.Fields{
		"server": cfg.Server.BaseURL,
		"window": fmt.Sprintf("%dx%d", guiWidth, guiHeight),
	}).Info("orbview gui starting")

	return gui.Run(ctx, gui.Options{
		Config:  cfg,
		Session: sess,
		Backend: client,
		Logger:  log,
		Width:   guiWidth,
		Height:  guiHeight,
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()
	return srv
}

func setTimeScale(cmd *cobra.Command, args []string) error {
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("time scale: %w", err)
	}
	if v < session.MinTimeScale || v > session.MaxTimeScale {
		return fmt.Errorf("time scale %g outside [%g, %g]", v, session.MinTimeScale, session.MaxTimeScale)
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

	client := remote.NewClient(cfg.Server.BaseURL, cfg.Server.RequestTimeout, log)
	if err := client.SetTimeScale(cmd.Context(), v); err != nil {
		return err
	}
	fmt.Printf("time scale set to x%g\n", v)
	return nil
}

func listCaptures(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(filepath.Join(cfg.DataDir, "captures"))
	caps, err := st.List()
	if err != nil {
		return err
	}

	if len(caps) == 0 {
		fmt.Println("no captures found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tSIM TIME\tSOURCE\tSAMPLES\tTARGET")
	for _, c := range caps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			c.ID,
			c.Kind,
			c.Timestamp.Format("2006-01-02 15:04:05"),
			c.SimTime,
			c.Source,
			c.Samples,
			c.Target,
		)
	}
	return w.Flush()
}
