package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/skygrid/internal/config"
	"github.com/banshee-data/skygrid/internal/monitoring"
	"github.com/banshee-data/skygrid/internal/pipeline"
	"github.com/banshee-data/skygrid/internal/sink"
	"github.com/banshee-data/skygrid/internal/timeutil"
	"github.com/banshee-data/skygrid/internal/units"
	"github.com/banshee-data/skygrid/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a .json/.yaml config file (defaults apply when empty)")
	listen      = flag.String("listen", "", "Debug HTTP listen address, e.g. :8080 (overrides config)")
	logPath     = flag.String("log", "", "Append a text line per cycle to this file (overrides config)")
	dbPath      = flag.String("db", "", "Append track rows to this SQLite file (overrides config)")
	pngPath     = flag.String("png", "", "Write the latest grid to this PNG file (overrides config)")
	console     = flag.Bool("console", true, "Draw the grid and track list on stdout")
	plain       = flag.Bool("plain", false, "Console output without colour escapes")
	once        = flag.Bool("once", false, "Run a single cycle and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// overrides are the flag values that replace config fields when set.
type overrides struct {
	Listen  string
	LogPath string
	DBPath  string
	PNGPath string
}

func (o overrides) apply(cfg *config.Config) {
	if o.Listen != "" {
		cfg.Listen = &o.Listen
	}
	if o.LogPath != "" {
		cfg.LogPath = &o.LogPath
	}
	if o.DBPath != "" {
		cfg.DBPath = &o.DBPath
	}
	if o.PNGPath != "" {
		cfg.PNGPath = &o.PNGPath
	}
}

func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg := config.EmptyConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// sinkSet is what attachSinks opened: the closers to run on shutdown and
// the track log, if any, for the admin routes.
type sinkSet struct {
	closers []io.Closer
	trackDB *sink.TrackDB
}

func (s *sinkSet) Close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Printf("failed to close sink: %v", err)
		}
	}
}

// attachSinks wires every configured sink into p. On error the sinks it
// already opened are closed and no set is returned.
func attachSinks(p *pipeline.Pipeline, cfg *config.Config, stdout io.Writer, showConsole, plainConsole bool) (*sinkSet, error) {
	s := &sinkSet{}

	if showConsole {
		c := sink.NewConsoleDisplay(stdout)
		c.Plain = plainConsole
		c.Units = cfg.GetAltitudeUnits()
		p.AddDisplay(c)
		p.AddRecorder(c)
	}
	if path := cfg.GetPNGPath(); path != "" {
		p.AddDisplay(sink.NewPNGDisplay(path))
	}
	if path := cfg.GetLogPath(); path != "" {
		loc, err := units.Location(cfg.GetLogTimezone())
		if err != nil {
			s.Close()
			return nil, err
		}
		l, err := sink.OpenTextLog(path)
		if err != nil {
			s.Close()
			return nil, err
		}
		l.Location = loc
		p.AddRecorder(l)
		s.closers = append(s.closers, l)
	}
	if path := cfg.GetDBPath(); path != "" {
		db, err := sink.OpenTrackDB(path)
		if err != nil {
			s.Close()
			return nil, err
		}
		log.Printf("recording tracks to %s (run %s)", path, db.RunID())
		p.AddRecorder(db)
		s.closers = append(s.closers, db)
		s.trackDB = db
	}
	return s, nil
}

// Main
func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	monitoring.SetLogger(log.Printf)

	cfg, err := loadConfig(*configPath, overrides{
		Listen:  *listen,
		LogPath: *logPath,
		DBPath:  *dbPath,
		PNGPath: *pngPath,
	})
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	p, err := pipeline.FromConfig(cfg, pipeline.NewFeed(cfg), timeutil.RealClock{})
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	sinks, err := attachSinks(p, cfg, os.Stdout, *console, *plain)
	if err != nil {
		log.Fatalf("failed to open sink: %v", err)
	}
	defer sinks.Close()

	chart := sink.NewChartHandler()
	p.AddDisplay(chart)

	log.Printf("%s tracking %d km around %.4f,%.4f", version.String(), int(cfg.GetRadiusKM()), cfg.GetHomeLat(), cfg.GetHomeLong())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if _, err := p.RunOnce(ctx); err != nil {
			log.Printf("cycle failed: %v", err)
			sinks.Close()
			stop()
			os.Exit(1)
		}
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("pipeline stopped: %v", err)
		}
		log.Printf("pipeline routine stopped")
	}()

	if addr := cfg.GetListen(); addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			server := &http.Server{
				Addr:              addr,
				Handler:           newDebugMux(p, chart, sinks.trackDB),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				log.Printf("debug server listening on %s", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start server: %v", err)
				}
			}()

			<-ctx.Done()
			log.Println("shutting down HTTP server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("HTTP server force close error: %v", err)
				}
			}
			log.Printf("HTTP server routine stopped")
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
