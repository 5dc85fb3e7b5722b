package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/erazemk/handreceipt/internal/calibration"
	"github.com/erazemk/handreceipt/internal/config"
	"github.com/erazemk/handreceipt/internal/custody"
	"github.com/erazemk/handreceipt/internal/db"
	"github.com/erazemk/handreceipt/internal/logger"
	"github.com/erazemk/handreceipt/internal/receipt"
)

const usage = `Usage: handreceipt [flags] <command> [command flags] [serials...]

Flags:
  -c, -config <path>      YAML config file (default: $HANDRECEIPT_CONFIG)
  -e, -env <path>         dotenv file (default: .env if present)
  -d, -db <path>          SQLite database path (default: handreceipt.sqlite3)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -v, -verbose            log at debug level
  -h, -help               show this help and exit

Inventory:
  init                    create the database and seed calibration defaults
  add                     add one item (-model -category -serial [-box -asset])
  import <file>           upsert items from .csv or .xlsx
  export <file>           write live items to .csv or .xlsx
  list [-status s]        list items (on_hand, issued, deleted; default live)

Custody:
  validate-issue          report which serials can be issued
  issue -to <name>        issue serials (-from, -contact set custodian metadata)
  validate-return         report which serials are issued
  return                  return serials
  custodians              list custodians holding items
  custodian-meta -to <n>  set custodian metadata (-from, -contact)
  history                 show custody events (-serial, -custodian, -limit)

Recycle bin:
  delete [-reason r]      soft delete on-hand serials
  restore                 restore deleted serials
  purge -yes              erase deleted serials permanently
  bin                     list deleted items

Receipts:
  generate -to <name>     write the DA 2062 draw plan (-out dir, -proof for PNG proofs)
  receipts [-to name]     list generated receipts
  calibration <show|set|reset|export|import> [args]

Serials come from arguments, -serials "a,b,c" and, with -stdin, standard input.
Command flags go before serial arguments: issue -to "SGT Doe" W1 W2.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app wires the services one command needs.
type app struct {
	cfg         config.Config
	db          *sql.DB
	log         *zap.Logger
	custody     *custody.Service
	receipts    *receipt.Service
	calibration *calibration.Active

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("handreceipt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var configPath, envFile, dbPath, logPath string
	var verbose bool
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")
	fs.StringVar(&envFile, "env", "", "")
	fs.StringVar(&envFile, "e", "", "")
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")
	fs.BoolVar(&verbose, "verbose", false, "")
	fs.BoolVar(&verbose, "v", false, "")

	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if logPath != "" {
		cfg.Log.File = logPath
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, closeLog, err := logger.New(logger.Options{
		Level: cfg.Log.Level, File: cfg.Log.File, Stdout: stdout, Stderr: stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n", name)
		fs.Usage()
		return 1
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		return 1
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		log.Error("failed to ensure database schema", zap.Error(err))
		return 1
	}

	a := &app{
		cfg:         cfg,
		db:          database,
		log:         log,
		custody:     custody.NewService(database, logger.Named(log, "custody")),
		calibration: calibration.NewActive(database, logger.Named(log, "calibration")),
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
	}
	if err := a.calibration.Load(ctx); err != nil {
		log.Error("failed to load calibration", zap.Error(err))
		return 1
	}
	a.receipts = receipt.NewService(database, a.calibration, logger.Named(log, "receipt"))

	if err := cmd(ctx, a, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Error(name+" failed", zap.Error(err))
		return 1
	}
	return 0
}
