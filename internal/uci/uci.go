// Package uci maps the UCI line protocol onto the engine API. Replies
// go to the writer the driver was built with; diagnostics go through
// zerolog so they never mix into the protocol stream.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkoivisto/peregrine/internal/board"
	"github.com/tkoivisto/peregrine/internal/engine"
)

// Driver runs the UCI main loop over one engine instance.
type Driver struct {
	eng *engine.Engine
	log zerolog.Logger

	in  io.Reader
	out io.Writer
	mu  sync.Mutex // serializes protocol output across goroutines

	pos    *board.Position
	hashes []uint64

	searchDone chan struct{}
}

// New builds a driver reading commands from in and replying on out.
func New(eng *engine.Engine, in io.Reader, out io.Writer, log zerolog.Logger) *Driver {
	return &Driver{
		eng:    eng,
		log:    log,
		in:     in,
		out:    out,
		pos:    board.StartPosition(),
		hashes: nil,
	}
}

func (d *Driver) send(format string, args ...any) {
	d.mu.Lock()
	fmt.Fprintf(d.out, format+"\n", args...)
	d.mu.Unlock()
}

// Run processes commands until quit or EOF.
func (d *Driver) Run() {
	scanner := bufio.NewScanner(d.in)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			d.handleUCI()
		case "isready":
			d.send("readyok")
		case "ucinewgame":
			d.waitSearch()
			d.eng.NewGame()
			d.pos = board.StartPosition()
			d.hashes = nil
		case "setoption":
			d.handleSetOption(args)
		case "position":
			d.handlePosition(args)
		case "go":
			d.handleGo(args)
		case "stop":
			// Stop latches inside the engine, so the search goroutine
			// spawned by a preceding go aborts even if it has not
			// entered its search yet. With nothing pending the stop is
			// dropped rather than left armed for the next go.
			if d.searchRunning() {
				d.eng.Stop()
				d.waitSearch()
			}
		case "quit":
			if d.searchRunning() {
				d.eng.Stop()
				d.waitSearch()
			}
			return
		// Debug commands.
		case "d":
			d.send("%s", d.pos.String())
		case "perft":
			d.handlePerft(args)
		default:
			d.log.Debug().Str("command", line).Msg("unknown command")
		}
	}
}

func (d *Driver) handleUCI() {
	d.send("id name Peregrine")
	d.send("id author Peregrine authors")
	d.send("")
	d.send("option name Hash type spin default 64 min 1 max 32768")
	d.send("option name Threads type spin default 1 min 1 max 256")
	d.send("option name EvalFile type string default <empty>")
	d.send("option name UCI_Chess960 type check default false")
	d.send("option name Move Overhead type spin default 10 min 0 max 5000")
	d.send("uciok")
}

func (d *Driver) handleSetOption(args []string) {
	var name, value string
	target := (*string)(nil)
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target != nil {
				if *target != "" {
					*target += " "
				}
				*target += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		if mb, err := strconv.Atoi(value); err == nil && mb >= 1 {
			d.eng.SetHashSize(mb)
		}
	case "threads":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			d.eng.SetThreads(n)
		}
	case "evalfile":
		if value != "" && value != "<empty>" {
			d.eng.SetEvalFile(value)
		}
	case "uci_chess960":
		d.eng.SetChess960(strings.EqualFold(value, "true"))
	case "move overhead":
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			d.eng.SetMoveOverhead(time.Duration(ms) * time.Millisecond)
		}
	default:
		d.log.Debug().Str("name", name).Msg("unknown option")
	}
}

// handlePosition parses "position startpos|fen <fen> [moves ...]" and
// rebuilds the hash history used for repetition detection.
func (d *Driver) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	moveStart := len(args)
	fenEnd := len(args)
	for i, arg := range args {
		if arg == "moves" {
			fenEnd = i
			moveStart = i + 1
			break
		}
	}

	switch args[0] {
	case "startpos":
		d.pos = board.StartPosition()
	case "fen":
		pos, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			d.send("info string invalid fen: %v", err)
			return
		}
		d.pos = pos
	default:
		return
	}

	d.hashes = d.hashes[:0]
	d.hashes = append(d.hashes, d.pos.Hash)

	for _, moveStr := range args[moveStart:] {
		m := d.parseMove(moveStr)
		if m == board.NoMove {
			d.send("info string invalid move: %s", moveStr)
			return
		}
		d.pos.MakeMove(m)
		d.hashes = append(d.hashes, d.pos.Hash)
	}
}

// parseMove resolves a UCI move string against the legal moves of the
// current position. Matching on the printed form keeps standard and
// Fischer-Random castling notation consistent in both directions.
func (d *Driver) parseMove(moveStr string) board.Move {
	var ml board.MoveList
	d.pos.GenerateLegalMoves(&ml)
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if m.UCI(d.eng.Chess960()) == moveStr {
			return m
		}
	}
	return board.NoMove
}

func (d *Driver) handleGo(args []string) {
	if d.searchRunning() {
		return
	}

	limits := parseLimits(args)

	d.eng.SetPosition(d.pos.Copy(), append([]uint64(nil), d.hashes...))
	d.eng.OnInfo = d.sendInfo

	d.searchDone = make(chan struct{})

	go func() {
		defer close(d.searchDone)
		result := d.eng.Go(limits)
		if result.BestMove == board.NoMove {
			d.send("bestmove 0000")
			return
		}
		d.send("bestmove %s", result.BestMove.UCI(d.eng.Chess960()))
	}()
}

// searchRunning reports whether a previous go command is still active,
// reaping the done channel of a finished one.
func (d *Driver) searchRunning() bool {
	if d.searchDone == nil {
		return false
	}
	select {
	case <-d.searchDone:
		d.searchDone = nil
		return false
	default:
		return true
	}
}

func (d *Driver) waitSearch() {
	if d.searchDone != nil {
		<-d.searchDone
		d.searchDone = nil
	}
}

func parseLimits(args []string) engine.Limits {
	var limits engine.Limits

	dur := func(s string) time.Duration {
		ms, _ := strconv.Atoi(s)
		return time.Duration(ms) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		if args[i] == "infinite" {
			limits.Infinite = true
			continue
		}
		if i+1 >= len(args) {
			break
		}
		val := args[i+1]
		switch args[i] {
		case "wtime":
			limits.Time[board.White] = dur(val)
			i++
		case "btime":
			limits.Time[board.Black] = dur(val)
			i++
		case "winc":
			limits.Inc[board.White] = dur(val)
			i++
		case "binc":
			limits.Inc[board.Black] = dur(val)
			i++
		case "movestogo":
			limits.MovesToGo, _ = strconv.Atoi(val)
			i++
		case "movetime":
			limits.MoveTime = dur(val)
			i++
		case "depth":
			limits.Depth, _ = strconv.Atoi(val)
			i++
		case "nodes":
			limits.Nodes, _ = strconv.ParseUint(val, 10, 64)
			i++
		case "mate":
			limits.Mate, _ = strconv.Atoi(val)
			i++
		}
	}

	return limits
}

// sendInfo prints one completed iteration in UCI info format.
func (d *Driver) sendInfo(info engine.SearchInfo) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "info depth %d seldepth %d", info.Depth, info.SelDepth)

	if engine.IsMateScore(info.Score) {
		fmt.Fprintf(&sb, " score mate %d", engine.MateIn(info.Score))
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}

	fmt.Fprintf(&sb, " nodes %d nps %d hashfull %d time %d",
		info.Nodes, info.NPS, info.HashFull, info.Time.Milliseconds())

	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range info.PV {
			sb.WriteByte(' ')
			sb.WriteString(m.UCI(d.eng.Chess960()))
		}
	}

	d.send("%s", sb.String())
}

func (d *Driver) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			depth = n
		}
	}

	start := time.Now()
	nodes := engine.Perft(d.pos, depth)
	elapsed := time.Since(start)

	d.send("info string perft %d nodes %d time %dms", depth, nodes, elapsed.Milliseconds())
}
