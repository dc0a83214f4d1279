package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	topology "github.com/Atilaac/SiO2-topology"
	"github.com/Atilaac/SiO2-topology/io"
)

// FileGroup contains utility files for logging and writing profiles to.
type FileGroup struct {
	logger *zap.Logger
	prof   *os.File
}

// Close flushes the logger and stops profiling.
func (fg *FileGroup) Close() {
	if fg.logger != nil { _ = fg.logger.Sync() }

	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil { log.Fatal(err.Error()) }
	}
}

func main() {
	var (
		persistentHomology, histogram string
		exampleConfig string
		verbose bool
	)
	vars := map[string]*string {
		"PersistentHomology": &persistentHomology,
		"Histogram": &histogram,
		"ExampleConfig": &exampleConfig,
	}

	fs := flag.NewFlagSet("sio2-topology", flag.ExitOnError)
	fs.StringVar(
		&persistentHomology, "PersistentHomology", "",
		"Configuration file for [PersistentHomology] mode.",
	)
	fs.StringVar(
		&histogram, "Histogram", "",
		"Configuration file for [Histogram] mode, which re-bins the diagram " +
			"files of an earlier PersistentHomology run.",
	)
	fs.StringVar(
		&exampleConfig,
		"ExampleConfig", "", "Prints an example configuration file of the " +
			"specified type to stdout. Accepted arguments are " +
			"'PersistentHomology' and 'Histogram'.",
	)
	fs.BoolVar(&verbose, "Verbose", false, "Log debug messages.")

	err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("SIO2TOPO"))
	if err != nil { log.Fatal(err.Error()) }

	modeName, err := getModeName(vars)
	if err != nil { log.Fatal(err.Error()) }

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch modeName {
	case "PersistentHomology":
		con, err := io.ReadPersistentHomologyConfig(persistentHomology)
		if err != nil { log.Fatal(err.Error()) }

		fg := setupIO(con.LogFile, con.ProfileFile, verbose)
		fg.logger.Info("Running PersistentHomology main.",
			zap.String("config", persistentHomology))
		err = topology.Run(ctx, con, fg.logger)
		if err != nil { fg.logger.Error("analysis failed", zap.Error(err)) }
		fg.Close()
		if err != nil { os.Exit(1) }

	case "Histogram":
		con, err := io.ReadHistogramConfig(histogram)
		if err != nil { log.Fatal(err.Error()) }

		fg := setupIO(con.LogFile, con.ProfileFile, verbose)
		fg.logger.Info("Running Histogram main.",
			zap.String("config", histogram))
		err = topology.Rehistogram(ctx, con, fg.logger)
		if err != nil { fg.logger.Error("histograms failed", zap.Error(err)) }
		fg.Close()
		if err != nil { os.Exit(1) }

	case "ExampleConfig":
		switch exampleConfig {
		case "PersistentHomology":
			fmt.Println(io.ExamplePersistentHomologyFile)
		case "Histogram":
			fmt.Println(io.ExampleHistogramFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. Only recognized " +
					"arguments are 'PersistentHomology' and 'Histogram'.",
			)
		}
	default:
		panic("Impossible")
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" { setNames = append(setNames, name) }
	}
	sort.Strings(setNames)

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but sio2-topology " +
				"only accepts one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

// setupIO builds the logger, writing to logFile if it is set, and starts a
// CPU profile if profFile is set.
func setupIO(logFile, profFile string, verbose bool) *FileGroup {
	fg := &FileGroup{}

	config := zap.NewProductionConfig()
	if verbose { config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel) }
	if logFile != "" {
		config.OutputPaths = []string{logFile}
		config.ErrorOutputPaths = []string{logFile}
	}
	logger, err := config.Build()
	if err != nil { log.Fatal(err.Error()) }
	fg.logger = logger

	if profFile != "" {
		fg.prof, err = os.Create(profFile)
		if err != nil { log.Fatal(err.Error()) }
		err = pprof.StartCPUProfile(fg.prof)
		if err != nil { log.Fatal(err.Error()) }
	}

	return fg
}
