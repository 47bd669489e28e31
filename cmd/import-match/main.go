// Package main provides a CLI tool to load one match's chat into the database,
// or to preview the filtered view of it.
//
// Usage:
//
//	import-match (--file PATH | --match-id ID) [--dry-run] [--spam] [--base-url URL]
//
// Flags:
//
//	--file:     read the match document from a local JSON file
//	--match-id: fetch the match from the source API (or override the id of --file)
//	--dry-run:  print the view and filter counts instead of storing
//	--spam:     include spam in the printed view
//	--base-url: match source base URL (default OPENDOTA_BASE_URL)
//
// Environment Variables:
//
//	DB_DSN: Database connection string (required unless --dry-run)
//	OPENDOTA_BASE_URL, OPENDOTA_API_KEY, IMPORT_TIMEOUT: match source settings
//
// Example:
//
//	./import-match --match-id 7000000000 --dry-run
//	./import-match --file match.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/onnwee/match-chat/backend/chat"
	"github.com/onnwee/match-chat/backend/config"
	"github.com/onnwee/match-chat/backend/db"
	"github.com/onnwee/match-chat/backend/match"
)

type options struct {
	file     string
	matchID  int64
	dryRun   bool
	showSpam bool
	baseURL  string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("import-match", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.file, "file", "", "Read the match document from a local JSON file")
	fs.Int64Var(&o.matchID, "match-id", 0, "Fetch the match from the source API")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Print the view and counts without storing")
	fs.BoolVar(&o.showSpam, "spam", false, "Include spam in the printed view")
	fs.StringVar(&o.baseURL, "base-url", "", "Match source base URL (default OPENDOTA_BASE_URL)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.file == "" && o.matchID <= 0 {
		return o, errors.New("one of --file or --match-id is required")
	}
	if o.matchID < 0 {
		return o, fmt.Errorf("invalid --match-id %d", o.matchID)
	}
	return o, nil
}

func main() {
	_ = godotenv.Load(".env")

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		slog.Error("invalid arguments", slog.Any("error", err))
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		slog.Error("import failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	if opts.baseURL != "" {
		cfg.OpenDotaBaseURL = opts.baseURL
	}

	m, err := loadMatch(ctx, cfg, opts)
	if err != nil {
		return err
	}
	if m.Skipped > 0 {
		slog.Info("skipped chat entries of other types", slog.Int("count", m.Skipped))
	}

	if opts.dryRun {
		return printView(out, m, opts.showSpam)
	}

	if m.ID <= 0 {
		return errors.New("match document has no match_id; pass --match-id")
	}
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Warn("failed to close database", slog.Any("error", err))
		}
	}()
	if err := database.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := db.Migrate(ctx, database); err != nil {
		return err
	}
	if err := db.NewStore(database).SaveMatchChat(ctx, m.ID, m.Events); err != nil {
		return err
	}
	slog.Info("match chat stored", slog.Int64("match_id", m.ID), slog.Int("events", len(m.Events)))
	_, err = fmt.Fprintf(out, "stored %d events for match %d\n", len(m.Events), m.ID)
	return err
}

// loadMatch reads the document from --file or fetches --match-id.
func loadMatch(ctx context.Context, cfg *config.Config, opts options) (*match.Match, error) {
	var data []byte
	if opts.file != "" {
		b, err := os.ReadFile(opts.file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", opts.file, err)
		}
		data = b
	} else {
		if err := cfg.ValidateImportReady(); err != nil {
			return nil, err
		}
		fctx, cancel := context.WithTimeout(ctx, cfg.ImportTimeout)
		defer cancel()
		b, err := match.NewClient(cfg.OpenDotaBaseURL, cfg.OpenDotaAPIKey, cfg.ImportTimeout).Fetch(fctx, opts.matchID)
		if err != nil {
			return nil, err
		}
		data = b
	}

	m, err := match.ParsePayload(data)
	if err != nil {
		return nil, err
	}
	if opts.matchID > 0 {
		m.ID = opts.matchID
	}
	return m, nil
}

func printView(out io.Writer, m *match.Match, showSpam bool) error {
	state := chat.DefaultFilterState()
	if showSpam {
		state, _ = state.Set(chat.FilterSpam, true)
	}
	engine := chat.NewEngine(m.Events, chat.WithFilterState(state))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "match %d: %d events, %d shown\n", m.ID, len(m.Events), len(engine.Visible()))
	fmt.Fprintln(tw, "TIME\tTEAM\tPLAYER\tTYPE\tTARGET\tMESSAGE\t")
	for _, e := range engine.Visible() {
		msg := e.Key
		if e.Spam {
			msg += " (spam)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			chat.FormatSeconds(e.Time), e.Team(), e.Name, e.Kind, chat.TargetOf(e), msg)
	}
	fmt.Fprintln(tw)
	for _, c := range engine.Counts() {
		mark := " "
		if c.Enabled {
			mark = "x"
		}
		fmt.Fprintf(tw, "[%s] %s\t%d\t\n", mark, c.Kind, c.Count)
	}
	return tw.Flush()
}
