package main

import (
	"flag"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/rs/zerolog"

	"github.com/tkoivisto/peregrine/internal/engine"
	"github.com/tkoivisto/peregrine/internal/uci"
)

// defaultNet is probed in a few standard locations at startup; without
// it the engine falls back to the classical evaluation.
const defaultNet = "peregrine.nnue"

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	evalFile   = flag.String("evalfile", "", "network weight file (overrides auto-detection)")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	level := zerolog.WarnLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("create cpu profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("start cpu profile")
		}
		defer pprof.StopCPUProfile()
	}

	eng, err := engine.New(engine.Options{
		EvalFile: *evalFile,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("engine init")
	}
	if *evalFile == "" {
		if path := findEvalFile(); path != "" {
			eng.SetEvalFile(path)
		}
	}

	uci.New(eng, os.Stdin, os.Stdout, log).Run()
}

// findEvalFile probes the working directory and ~/.peregrine for the
// default network name, with and without zstd compression. An explicit
// -evalfile skips the probe and fails hard on a bad file.
func findEvalFile() string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".peregrine"))
	}
	for _, dir := range dirs {
		for _, name := range []string{defaultNet, defaultNet + ".zst"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
