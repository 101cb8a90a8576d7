// Command regolithsim loads a scenario file, builds a world from it, and
// either steps it headlessly for a fixed number of ticks or drops into an
// interactive console.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml"

	"github.com/dm-vev/regolith/console"
	"github.com/dm-vev/regolith/internal/numeric"
	"github.com/dm-vev/regolith/world"
)

// scenario is the TOML-decoded shape of a scenario file. Its engine fields
// map onto world.UserConfig (StepMode as a name, Workers clamped to
// [1, 256]); Interactive and Steps only steer this command.
type scenario struct {
	ChunkWidth   int32  `toml:"chunk_width"`
	ChunkHeight  int32  `toml:"chunk_height"`
	PayloadSize  uint16 `toml:"payload_size"`
	MaxMaterials uint16 `toml:"max_materials"`

	Deterministic bool   `toml:"deterministic"`
	Seed          uint64 `toml:"seed"`

	StepMode string `toml:"step_mode"`
	Workers  int    `toml:"workers"`

	Interactive bool `toml:"interactive"`
	Steps       int  `toml:"steps"`
}

func loadScenario(path string) (scenario, error) {
	var s scenario
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read scenario: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse scenario: %w", err)
	}
	return s, nil
}

func stepModeFromString(s string) world.StepMode {
	switch s {
	case "chunk_scan":
		return world.StepModeChunkScan
	case "checkerboard":
		return world.StepModeCheckerboardParallel
	default:
		return world.StepModeFullScan
	}
}

func main() {
	path := flag.String("scenario", "", "path to a TOML scenario file")
	steps := flag.Int("steps", -1, "override the scenario's step count (headless mode only)")
	flag.Parse()

	log := slog.Default()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: regolithsim -scenario scenario.toml")
		os.Exit(2)
	}

	s, err := loadScenario(*path)
	if err != nil {
		log.Error("failed to load scenario", "err", err)
		os.Exit(1)
	}

	workers := numeric.Clamp(s.Workers, 1, 256)
	conf := world.Config{
		Log: log,
		UserConfig: world.UserConfig{
			ChunkWidth:        s.ChunkWidth,
			ChunkHeight:       s.ChunkHeight,
			PayloadSize:       s.PayloadSize,
			MaxMaterials:      s.MaxMaterials,
			DeterministicMode: s.Deterministic,
			Seed:              s.Seed,
			StepMode:          stepModeFromString(s.StepMode),
			Workers:           workers,
		},
	}
	w := conf.New()
	defer w.Close()

	if s.Interactive {
		runInteractive(w, log)
		return
	}

	n := s.Steps
	if *steps >= 0 {
		n = *steps
	}
	for i := 0; i < n; i++ {
		w.Step()
	}
	st := w.Stats()
	fmt.Printf("tick=%d loaded_chunks=%d awake_chunks=%d live_cells=%d total_conflicts=%d\n",
		st.Tick, st.LoadedChunks, st.AwakeChunks, st.LiveCells, st.TotalConflicts)
}

// runInteractive starts the console REPL. Typing "exit" unwinds it via a
// panic/recover pair since go-prompt's Run loop has no other exit hook.
func runInteractive(w *world.World, log *slog.Logger) {
	defer func() { recover() }()
	console.New(w, log).Run()
}
