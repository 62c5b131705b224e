// Command recoil-analyzer correlates and decodes the event streams of
// the two DAQ frontends, writing unified singles, coincidence and
// scaler records to a SQLite database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/recoil.report/internal/config"
	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/engine"
	"github.com/banshee-data/recoil.report/internal/records"
	"github.com/banshee-data/recoil.report/internal/vars"
	"github.com/banshee-data/recoil.report/internal/version"
)

// Exit codes.
const (
	exitOK = iota
	exitDecodeError
	exitConfigMissing
	exitFlushTimeout
)

var (
	configPath = flag.String("config", "", "Tuning config JSON path")
	inPath     = flag.String("in", "", "Event stream file to analyze")
	udpAddr    = flag.String("udp", "", "Listen for events on this UDP address instead of reading a file")
	pcapPath   = flag.String("pcap", "", "Replay events from this PCAP capture")
	pcapPort   = flag.Int("pcap-port", 2601, "UDP port carrying events inside the PCAP capture")
	varsPath   = flag.String("vars", "", "Variables YAML path (overrides config)")
	dbPath     = flag.String("db", "", "Records database path (overrides config)")
	runNumber  = flag.Int64("run", 0, "Run number recorded with the output")
	debug      = flag.Bool("debug", false, "Enable verbose wire-layer logging")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	if *showVer {
		fmt.Printf("recoil-analyzer %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return exitOK
	}
	if *debug {
		daq.SetDebugLogger(os.Stderr)
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Printf("config: %v", err)
			return exitConfigMissing
		}
		cfg = loaded
	}

	varsFile := cfg.GetVariablesPath()
	if *varsPath != "" {
		varsFile = *varsPath
	}
	var src vars.Source
	if varsFile != "" {
		loaded, err := vars.LoadFile(varsFile)
		if err != nil {
			log.Printf("variables: %v", err)
			return exitConfigMissing
		}
		src = loaded
	}

	dbFile := cfg.GetDatabasePath()
	if *dbPath != "" {
		dbFile = *dbPath
	}
	store, err := records.Open(dbFile)
	if err != nil {
		log.Printf("records: %v", err)
		return exitConfigMissing
	}
	defer store.Close()

	if err := store.BeginRun(*runNumber); err != nil {
		log.Printf("records: %v", err)
		return exitConfigMissing
	}

	eng := engine.New(cfg, store)
	eng.BeginRun(src)
	log.Printf("run %d started (id %s)", *runNumber, store.RunID())

	if err := feedEvents(eng); err != nil {
		log.Printf("event stream: %v", err)
		return exitDecodeError
	}

	diag := eng.Diagnostics()
	droppedBefore := diag.Dropped
	if err := eng.EndRun(); err != nil {
		log.Printf("flush: %v", err)
		return exitDecodeError
	}
	flushDropped := diag.Dropped - droppedBefore

	if err := store.EndRun(diag.SinglesTotal(), diag.CoincCount, diag.Dropped); err != nil {
		log.Printf("records: %v", err)
	}

	summary := diag.Summarize()
	log.Printf("run %d complete: %d singles, %d coincidence pops, %d dropped, %d decode errors (median push delta %.0f ticks)",
		*runNumber, diag.SinglesTotal(), diag.CoincCount, diag.Dropped, eng.DecodeErrors, summary.Median)

	if flushDropped > 0 {
		return exitFlushTimeout
	}
	return exitOK
}

// feedEvents pumps events from the selected source into the engine.
func feedEvents(eng *engine.Engine) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case *udpAddr != "":
		listener := daq.NewUDPListener(daq.UDPListenerConfig{
			Address: *udpAddr,
			Handler: eng.Process,
		})
		err := listener.Listen(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case *pcapPath != "":
		err := daq.ReadPCAPFile(ctx, *pcapPath, *pcapPort, eng.Process)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case *inPath != "":
		f, err := os.Open(*inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		reader := daq.NewReader(f)
		for {
			ev, err := reader.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := eng.Process(ev); err != nil {
				return err
			}
		}

	default:
		return errors.New("no event source: pass -in, -udp or -pcap")
	}
}
