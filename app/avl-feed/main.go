package main

import (
	"context"
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/iqskr/AVLSystem/app/avl-feed/feedservice"
	"github.com/iqskr/AVLSystem/app/avl-feed/gtfsmanager"
	"github.com/iqskr/AVLSystem/app/avl-feed/synthesis"
	"github.com/iqskr/AVLSystem/business/data/avl"
	"github.com/iqskr/AVLSystem/business/data/feed"
	"github.com/iqskr/AVLSystem/business/data/feedarchive"
	"github.com/iqskr/AVLSystem/business/data/gtfs"
	"github.com/iqskr/AVLSystem/foundation/database"
	"github.com/iqskr/AVLSystem/foundation/httpclient"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

var build = "develop"

const prefix = "AVL_FEED"

type config struct {
	conf.Version
	Args conf.Args
	GPS  struct {
		URL             string        `conf:"default:http://localhost:8000/gps"`
		RetryInterval   time.Duration `conf:"default:500ms"`
		RetryMaxElapsed time.Duration `conf:"default:10s"`
	}
	GTFS struct {
		URL           string        `conf:"default:https://developer.trimet.org/schedule/gtfs.zip"`
		TempDir       string        `conf:"default:gtfs_tmp"`
		CheckInterval time.Duration `conf:"default:1h"`
		ForceDownload bool          `conf:"default:false"`
	}
	Vehicles struct {
		ConfigPath string `conf:"default:config.json"`
	}
	Alerts struct {
		Path string `conf:"default:alerts.yaml"`
	}
	Output struct {
		Directory string `conf:"default:output"`
	}
	Synthesis struct {
		Interval             time.Duration `conf:"default:30s"`
		CheckServiceCalendar bool          `conf:"default:false"`
		UseHolidays          bool          `conf:"default:false"`
		HeadingEvictCycles   int           `conf:"default:120"`
	}
	DB struct {
		Enabled    bool   `conf:"default:false"`
		User       string `conf:"default:postgres"`
		Password   string `conf:"default:postgres,noprint"`
		Host       string `conf:"default:0.0.0.0"`
		Name       string `conf:"default:postgres"`
		DisableTLS bool   `conf:"default:true"`
	}
	NATS struct {
		Enabled       bool   `conf:"default:false"`
		URL           string `conf:"default:nats://localhost:4222"`
		SubjectPrefix string `conf:"default:avl-feed"`
	}
	Web struct {
		Enabled            bool `conf:"default:true"`
		Port               int  `conf:"default:8080"`
		ExpireAfterSeconds int  `conf:"default:300"`
	}
}

func main() {
	log := logger.New(os.Stdout, "AVL_FEED : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// values in .env are used unless already set in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var cfg config
	cfg.Version.SVN = build
	cfg.Version.Desc = "Synthesize gtfs-realtime feeds from vehicle telemetry and a gtfs schedule"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			printUsage(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.Args.Num(0) {
	case "run":
		return runService(log, &cfg, false)
	case "once":
		return runService(log, &cfg, true)
	case "inspect":
		path := cfg.Args.Num(1)
		if len(path) == 0 {
			path = cfg.Output.Directory
		}
		return inspectFeedFiles(os.Stdout, path)
	case "schedule":
		return printSchedule(log, &cfg)
	case "history":
		return printHistory(log, &cfg, cfg.Args.Num(1))
	default:
		fmt.Println("run: synthesize feeds every interval until interrupted")
		fmt.Println("once: run a single synthesis cycle")
		fmt.Println("inspect [path]: print saved feed files, path is a .pb file or directory (default output directory)")
		fmt.Println("schedule: download the gtfs schedule and print a summary")
		fmt.Println("history [kind]: list feed messages archived in the database during the last hour")
		usage, err := conf.Usage(prefix, &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		printUsage(usage)
	}
	return nil
}

//runService wires collaborators from cfg and runs the synthesis loop, or a single cycle when once is true
func runService(log *logger.Logger, cfg *config, once bool) error {

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	vehicles, err := avl.LoadVehicleConfigs(cfg.Vehicles.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading vehicle configuration: %w", err)
	}
	log.Printf("main: loaded configuration for %d vehicles", vehicles.Len())

	metrics := synthesis.NewMetrics()
	recorders := []synthesis.FeedRecorder{synthesis.NewFileRecorder(log, cfg.Output.Directory)}

	// =========================================================================
	// Start Database

	if cfg.DB.Enabled {
		db, err := openDatabase(log, cfg)
		if err != nil {
			return err
		}
		defer closeDatabase(log, db, cfg.DB.Host)
		if err = feedarchive.EnsureSchema(context.Background(), db); err != nil {
			return fmt.Errorf("creating feed archive schema: %w", err)
		}
		recorders = append(recorders, synthesis.NewArchiveRecorder(db))
	}

	// =========================================================================
	// Start NATS

	if cfg.NATS.Enabled {
		log.Printf("main: Connecting to NATS at %s", cfg.NATS.URL)
		natsConn, err := nats.Connect(cfg.NATS.URL,
			nats.Name("avl-feed"),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("nats disconnected. error:%v", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats reconnected")
			}))
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsConn.Close()
		recorders = append(recorders, synthesis.NewNATSRecorder(log, natsConn, cfg.NATS.SubjectPrefix))
	}

	var holidays *gtfs.HolidayCalendar
	if cfg.Synthesis.UseHolidays {
		holidays = gtfs.NewUSHolidayCalendar()
	}

	scheduleLoader := gtfsmanager.NewScheduleLoader(log, gtfsmanager.Config{
		URL:               cfg.GTFS.URL,
		DownloadDirectory: cfg.GTFS.TempDir,
		CheckInterval:     cfg.GTFS.CheckInterval,
		ForceDownload:     cfg.GTFS.ForceDownload,
	})
	telemetry := synthesis.NewHTTPTelemetrySource(log, cfg.GPS.URL, httpclient.Retry{
		InitialInterval: cfg.GPS.RetryInterval,
		MaxElapsedTime:  cfg.GPS.RetryMaxElapsed,
	})

	if once {
		pipeline := synthesis.NewPipeline(log, pipelineConfig(cfg, holidays), telemetry, scheduleLoader,
			synthesis.NewFileAlertSource(cfg.Alerts.Path), vehicles, metrics, recorders...)
		result := pipeline.RunCycle(context.Background(), time.Now())
		return result.Err
	}

	// =========================================================================
	// Start Web Service

	wg := sync.WaitGroup{}
	webShutdown := make(chan bool, 1)
	if cfg.Web.Enabled {
		feedService := feedservice.NewFeedService(log, cfg.Web.ExpireAfterSeconds)
		recorders = append(recorders, feedService)
		wg.Add(1)
		go feedservice.RunWebService(log, &wg, feedService, metrics.Handler(), cfg.Web.Port, webShutdown)
	}

	pipeline := synthesis.NewPipeline(log, pipelineConfig(cfg, holidays), telemetry, scheduleLoader,
		synthesis.NewFileAlertSource(cfg.Alerts.Path), vehicles, metrics, recorders...)

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	err = synthesis.RunSynthesisLoop(log, pipeline, cfg.Synthesis.Interval, shutdown)
	webShutdown <- true
	wg.Wait()
	return err
}

func pipelineConfig(cfg *config, holidays *gtfs.HolidayCalendar) synthesis.Config {
	return synthesis.Config{
		CheckServiceCalendar: cfg.Synthesis.CheckServiceCalendar,
		Holidays:             holidays,
		HeadingEvictCycles:   cfg.Synthesis.HeadingEvictCycles,
	}
}

//printSchedule loads the configured gtfs schedule and prints a summary of it
func printSchedule(log *logger.Logger, cfg *config) error {
	loader := gtfsmanager.NewScheduleLoader(log, gtfsmanager.Config{
		URL:               cfg.GTFS.URL,
		DownloadDirectory: cfg.GTFS.TempDir,
		ForceDownload:     cfg.GTFS.ForceDownload,
	})
	index, err := loader.FetchSchedule(context.Background())
	if err != nil {
		return err
	}
	return gtfsmanager.PrintScheduleSummary(os.Stdout, index)
}

//printHistory lists archived feed messages of kindName, all kinds when empty, from the last hour
func printHistory(log *logger.Logger, cfg *config, kindName string) error {
	kinds := feed.Kinds
	if len(kindName) > 0 {
		kind, err := feed.ParseKind(kindName)
		if err != nil {
			return err
		}
		kinds = []feed.Kind{kind}
	}
	db, err := openDatabase(log, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(log, db, cfg.DB.Host)

	records, err := feedarchive.GetFeedMessages(context.Background(), db, kinds, time.Now().Add(-time.Hour), 100)
	if err != nil {
		return err
	}
	for _, record := range records {
		fmt.Printf("%d\t%s\t%s\t%s\t%d bytes\n", record.Id, record.Kind, record.EntityId,
			record.FeedTimestamp.Local().Format(time.RFC3339), len(record.Payload))
	}
	return nil
}

func openDatabase(log *logger.Logger, cfg *config) (*sqlx.DB, error) {
	log.Println("main: Initializing database support")
	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to db: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = database.StatusCheck(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("checking db status: %w", err)
	}
	return db, nil
}

func closeDatabase(log *logger.Logger, db *sqlx.DB, host string) {
	log.Printf("main: Database Stopping : %s", host)
	if err := db.Close(); err != nil {
		log.Printf("main: error closing database: %v", err)
	}
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
