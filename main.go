package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/stevemurr/simple-pos/config"
	"github.com/stevemurr/simple-pos/handler"
	"github.com/stevemurr/simple-pos/report"
	"github.com/stevemurr/simple-pos/storage"
	"github.com/stevemurr/simple-pos/store"
)

// app is the state shared by every command.
type app struct {
	cfg     config.Config
	log     *log.Logger
	kv      *store.LimitedStore
	storage *storage.Storage
}

func open(c *cli.Context) (*app, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("capacity") {
		cfg.CapacityBytes = c.Int64("capacity")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger()
	kv, err := cfg.OpenStore()
	if err != nil {
		return nil, errors.Wrapf(err, "open store (backend=%s)", cfg.Backend)
	}
	return &app{
		cfg:     cfg,
		log:     logger,
		kv:      kv,
		storage: storage.New(kv, storage.WithLogger(logger)),
	}, nil
}

func (a *app) close() {
	if cl, ok := a.kv.Store.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			a.log.WithError(err).Warn("close store")
		}
	}
}

func run(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := open(c)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(c, a)
	}
}

func serve(c *cli.Context, a *app) error {
	addr := a.cfg.ListenAddr
	if c.IsSet("listen") {
		addr = c.String("listen")
	}
	cascade := a.cfg.CascadeCheckout || c.Bool("cascade")

	if _, err := a.storage.Load(); err != nil {
		a.log.WithError(err).Warn("starting with an unreadable document")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	h := handler.New(a.storage,
		handler.WithLogger(a.log),
		handler.WithCascade(cascade),
		handler.WithRegistry(reg),
		handler.WithAllowedOrigins(a.cfg.AllowedOrigins...),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithFields(log.Fields{
			"addr":    addr,
			"store":   a.cfg.Backend,
			"data":    a.cfg.DataDir,
			"cascade": cascade,
		}).Info("POS server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.log.Info("shutting down")
		return srv.Shutdown(shutdown)
	})
	return g.Wait()
}

// writeOut writes b to the named file, or stdout for "-".
func writeOut(name string, b []byte) error {
	if name == "-" {
		_, err := os.Stdout.Write(b)
		return err
	}
	return errors.Wrapf(os.WriteFile(name, b, 0o644), "write %s", name)
}

// readIn reads the named file, or stdin for "-".
func readIn(name string) ([]byte, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		return b, errors.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(name)
	return b, errors.Wrapf(err, "read %s", name)
}

func exportCmd(c *cli.Context, a *app) error {
	b, err := a.storage.ExportData()
	if err != nil {
		return err
	}
	name := c.Args().First()
	if name == "" {
		name = storage.ExportFileName(a.storage.Now())
	}
	if err := writeOut(name, b); err != nil {
		return err
	}
	a.log.WithFields(log.Fields{"file": name, "bytes": len(b)}).Info("data exported")
	return nil
}

func importCmd(c *cli.Context, a *app) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("import: a file name or - is required")
	}
	b, err := readIn(name)
	if err != nil {
		return err
	}
	if err := a.storage.ImportData(b); err != nil {
		return err
	}
	a.log.WithField("file", name).Info("data imported")
	return nil
}

func backupCmd(_ *cli.Context, a *app) error {
	b, err := a.storage.CreateBackup()
	if err != nil {
		return err
	}
	a.log.WithField("bytes", len(b)).Info("backup created")
	return nil
}

func restoreCmd(c *cli.Context, a *app) error {
	var b []byte
	if name := c.Args().First(); name != "" {
		var err error
		if b, err = readIn(name); err != nil {
			return err
		}
	}
	if err := a.storage.RestoreFromBackup(b); err != nil {
		return err
	}
	a.log.Info("data restored")
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func infoCmd(_ *cli.Context, a *app) error {
	info, err := a.storage.StorageInfo()
	if err != nil {
		return err
	}
	return printJSON(info)
}

func clearCmd(c *cli.Context, a *app) error {
	if !c.Bool("yes") {
		return errors.New("clear: refusing to delete all data without --yes")
	}
	return a.storage.ClearAllData()
}

func syncCmd(_ *cli.Context, a *app) error {
	return a.storage.Sync()
}

func reportCmd(c *cli.Context, a *app) error {
	rng := report.LastDays(a.storage.Now().In(time.Local), 30)
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"from", &rng.From}, {"to", &rng.To}} {
		v := c.String(f.name)
		if v == "" {
			continue
		}
		t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			return errors.Wrapf(err, "--%s", f.name)
		}
		*f.dst = t
	}
	if err := rng.Validate(); err != nil {
		return err
	}
	rep, err := report.Generate(a.storage, rng)
	if err != nil {
		return err
	}
	b, err := report.Export(rep)
	if err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = "-"
	}
	return writeOut(out, b)
}

func main() {
	cliApp := &cli.App{
		Name:  "pos",
		Usage: "local point-of-sale data service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file read before POS_* variables"},
			&cli.StringFlag{Name: "backend", Usage: "store backend: json, sqlite or memory"},
			&cli.StringFlag{Name: "data-dir", Usage: "directory for store files"},
			&cli.Int64Flag{Name: "capacity", Usage: "storage ceiling in bytes"},
			&cli.StringFlag{Name: "log-level", Usage: "logrus level"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the JSON API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "listen address"},
					&cli.BoolFlag{Name: "cascade", Usage: "update stock and customers on checkout"},
				},
				Action: run(serve),
			},
			{Name: "export", Usage: "write all data as JSON", ArgsUsage: "[file|-]", Action: run(exportCmd)},
			{Name: "import", Usage: "replace all data from an export", ArgsUsage: "<file|->", Action: run(importCmd)},
			{Name: "backup", Usage: "copy the live document to the backup slot", Action: run(backupCmd)},
			{Name: "restore", Usage: "restore from a file or the backup slot", ArgsUsage: "[file|-]", Action: run(restoreCmd)},
			{Name: "info", Usage: "show storage usage", Action: run(infoCmd)},
			{Name: "sync", Usage: "synchronise with a server (offline only)", Action: run(syncCmd)},
			{
				Name:   "clear",
				Usage:  "delete all data and the backup",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "yes", Usage: "confirm deletion"}},
				Action: run(clearCmd),
			},
			{
				Name:  "report",
				Usage: "print a sales report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "first day, YYYY-MM-DD"},
					&cli.StringFlag{Name: "to", Usage: "last day, YYYY-MM-DD"},
					&cli.StringFlag{Name: "out", Usage: "output file, - for stdout"},
				},
				Action: run(reportCmd),
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pos:", err)
		os.Exit(1)
	}
}
