package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/guileen/planlite/api"
	"github.com/guileen/planlite/binder"
	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/catalog/persistence"
	"github.com/guileen/planlite/catalog/pgimport"
	"github.com/guileen/planlite/logger"
	"github.com/guileen/planlite/planner"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "explain":
		err = runExplain(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: planlite <command> [flags]

commands:
  explain  -catalog file.json "SELECT ..."   plan a query and print the plan
  serve    -catalog file.json -addr :8080    serve explain requests over HTTP
  import   -dsn postgres://... -store dir -name prod
                                             import statistics from PostgreSQL`)
}

func runExplain(args []string) error {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	catalogPath := fs.String("catalog", "", "catalog document (JSON)")
	fs.Parse(args)

	if *catalogPath == "" || fs.NArg() != 1 {
		return fmt.Errorf("explain requires -catalog and exactly one SQL argument")
	}

	snap, err := catalog.LoadSnapshot(*catalogPath)
	if err != nil {
		return err
	}

	b := binder.New(snap)
	q, err := b.Bind(fs.Arg(0))
	if err != nil {
		return err
	}

	p := planner.New(snap, planner.DefaultConfig())
	plan, err := p.Plan(context.Background(), q)
	if err != nil {
		return err
	}

	fmt.Print(planner.Explain(plan))
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	catalogPath := fs.String("catalog", "", "catalog document (JSON)")
	storePath := fs.String("store", "", "snapshot store directory")
	storeName := fs.String("name", "", "snapshot name within the store")
	addr := fs.String("addr", ":8080", "listen address")
	fs.Parse(args)

	snap, err := loadSnapshot(*catalogPath, *storePath, *storeName)
	if err != nil {
		return err
	}
	logger.Info("catalog snapshot loaded", "snapshot_id", snap.ID().String(), "tables", len(snap.Tables()))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	handler := api.NewHandler(snap, planner.DefaultConfig())
	handler.RegisterRoutes(r)

	server := &http.Server{Addr: *addr, Handler: r}

	done := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			done <- err
			return
		}
		done <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-done:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dsn := fs.String("dsn", "", "postgres connection string")
	storePath := fs.String("store", "", "snapshot store directory")
	storeName := fs.String("name", "default", "snapshot name within the store")
	fs.Parse(args)

	if *dsn == "" || *storePath == "" {
		return fmt.Errorf("import requires -dsn and -store")
	}

	ctx := context.Background()
	importer, err := pgimport.Connect(ctx, *dsn)
	if err != nil {
		return err
	}
	defer importer.Close(ctx)

	doc, err := importer.ImportDocument(ctx)
	if err != nil {
		return err
	}

	store, err := persistence.Open(*storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Put(*storeName, doc); err != nil {
		return err
	}
	logger.Info("catalog imported", "name", *storeName, "tables", len(doc.Tables))
	return nil
}

func loadSnapshot(catalogPath, storePath, storeName string) (*catalog.Snapshot, error) {
	switch {
	case catalogPath != "":
		return catalog.LoadSnapshot(catalogPath)
	case storePath != "" && storeName != "":
		store, err := persistence.Open(storePath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		doc, err := store.Get(storeName)
		if err != nil {
			return nil, err
		}
		return catalog.NewSnapshot(doc)
	default:
		return nil, fmt.Errorf("serve requires -catalog, or -store with -name")
	}
}
