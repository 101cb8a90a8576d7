// Package console provides an interactive command-line REPL for driving a
// world by hand: stepping it, inspecting cells, and reading back stats,
// without needing to write a harness program first.
package console

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/dm-vev/regolith/world"
)

// Console wraps a *world.World with a line-oriented command dispatcher. It
// is deliberately dumb: every command parses its own arguments and prints
// its own errors rather than building up a generic command framework, the
// same way a small operational REPL earns its keep by staying easy to
// read top to bottom.
type Console struct {
	w   *world.World
	log *slog.Logger
}

// New wraps w in a Console. If log is nil, slog.Default() is used.
func New(w *world.World, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{w: w, log: log}
}

var commandNames = []string{"step", "load", "unload", "set", "get", "stats", "materials", "help", "exit"}

func completer(d prompt.Document) []prompt.Suggest {
	suggestions := make([]prompt.Suggest, 0, len(commandNames))
	for _, name := range commandNames {
		suggestions = append(suggestions, prompt.Suggest{Text: name})
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

// Run starts the REPL and blocks until the user exits it (Ctrl-D, or
// typing "exit").
func (c *Console) Run() {
	p := prompt.New(
		c.execute,
		completer,
		prompt.OptionPrefix("regolith> "),
		prompt.OptionTitle("regolith"),
	)
	p.Run()
}

func (c *Console) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "step":
		err = c.cmdStep(args)
	case "load":
		err = c.cmdLoad(args)
	case "unload":
		err = c.cmdUnload(args)
	case "set":
		err = c.cmdSet(args)
	case "get":
		err = c.cmdGet(args)
	case "stats":
		c.cmdStats()
	case "materials":
		c.cmdMaterials()
	case "help":
		c.cmdHelp()
	case "exit", "quit":
		panic(exitRequest{})
	default:
		fmt.Printf("unknown command %q (try \"help\")\n", cmd)
	}
	if err != nil {
		fmt.Println("error:", err)
	}
}

// exitRequest is recovered by cmd/regolithsim to unwind p.Run() cleanly;
// go-prompt has no other way to stop the read loop from inside a command.
type exitRequest struct{}

func (c *Console) cmdStep(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("step count: %w", err)
		}
		n = v
	}
	for i := 0; i < n; i++ {
		c.w.Step()
	}
	fmt.Printf("stepped to tick %d\n", c.w.Tick())
	return nil
}

func parsePos(x, y string) (world.ChunkPos, error) {
	xi, err := strconv.Atoi(x)
	if err != nil {
		return world.ChunkPos{}, err
	}
	yi, err := strconv.Atoi(y)
	if err != nil {
		return world.ChunkPos{}, err
	}
	return world.ChunkPos{X: int32(xi), Y: int32(yi)}, nil
}

func (c *Console) cmdLoad(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: load <cx> <cy>")
	}
	pos, err := parsePos(args[0], args[1])
	if err != nil {
		return err
	}
	_, created := c.w.Load(pos)
	fmt.Printf("chunk (%d, %d) loaded (new=%v)\n", pos.X, pos.Y, created)
	return nil
}

func (c *Console) cmdUnload(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: unload <cx> <cy>")
	}
	pos, err := parsePos(args[0], args[1])
	if err != nil {
		return err
	}
	if err := c.w.Unload(pos); err != nil {
		return err
	}
	fmt.Printf("chunk (%d, %d) unloaded\n", pos.X, pos.Y)
	return nil
}

func (c *Console) cmdSet(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: set <x> <y> <material-id>")
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(args[2])
	if err != nil {
		return err
	}
	return c.w.Set(world.CellCoord{X: int32(x), Y: int32(y)}, world.MaterialID(id))
}

func (c *Console) cmdGet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: get <x> <y>")
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	id, payload, err := c.w.Get(world.CellCoord{X: int32(x), Y: int32(y)})
	if err != nil {
		return err
	}
	fmt.Printf("material=%d payload=%v\n", id, payload)
	return nil
}

func (c *Console) cmdStats() {
	s := c.w.Stats()
	fmt.Printf("tick=%d loaded_chunks=%d awake_chunks=%d live_cells=%d last_step_conflicts=%d total_conflicts=%d\n",
		s.Tick, s.LoadedChunks, s.AwakeChunks, s.LiveCells, s.LastStepConflicts, s.TotalConflicts)
}

func (c *Console) cmdMaterials() {
	fmt.Printf("%d materials registered\n", c.w.MaterialCount())
}

func (c *Console) cmdHelp() {
	fmt.Println("commands: step [n] | load cx cy | unload cx cy | set x y id | get x y | stats | materials | exit")
}
