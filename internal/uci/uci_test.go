package uci

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tkoivisto/peregrine/internal/engine"
)

// runCommands feeds a script through a fresh driver and returns the
// protocol output lines.
func runCommands(t *testing.T, commands ...string) []string {
	t.Helper()
	eng, err := engine.New(engine.Options{HashMB: 8, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	in := strings.NewReader(strings.Join(commands, "\n") + "\n")
	var out bytes.Buffer
	New(eng, in, &out, zerolog.Nop()).Run()

	return strings.Split(strings.TrimSpace(out.String()), "\n")
}

func hasLine(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func lastWith(lines []string, prefix string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], prefix) {
			return lines[i]
		}
	}
	return ""
}

func TestHandshake(t *testing.T) {
	lines := runCommands(t, "uci", "isready", "quit")

	if !hasLine(lines, "id name") {
		t.Error("missing id name")
	}
	if !hasLine(lines, "option name Hash") || !hasLine(lines, "option name Threads") {
		t.Error("missing options")
	}
	if !hasLine(lines, "uciok") {
		t.Error("missing uciok")
	}
	if !hasLine(lines, "readyok") {
		t.Error("missing readyok")
	}
}

func TestGoProducesBestMove(t *testing.T) {
	lines := runCommands(t,
		"position startpos moves e2e4 e7e5",
		"go depth 2",
		"ucinewgame", // waits for the search instead of aborting it
		"quit")

	best := lastWith(lines, "bestmove ")
	if best == "" {
		t.Fatal("no bestmove emitted")
	}
	if len(strings.Fields(best)) < 2 || best == "bestmove 0000" {
		t.Errorf("unexpected bestmove line %q", best)
	}
	if !hasLine(lines, "info depth") {
		t.Error("no info lines emitted")
	}
}

func TestGoFindsMateAndReportsIt(t *testing.T) {
	lines := runCommands(t,
		"position fen 6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
		"go depth 4",
		"ucinewgame",
		"quit")

	if got := lastWith(lines, "bestmove "); got != "bestmove a1a8" {
		t.Errorf("bestmove line %q, want bestmove a1a8", got)
	}
	info := lastWith(lines, "info depth")
	if !strings.Contains(info, "score mate 1") {
		t.Errorf("info line %q, want score mate 1", info)
	}
}

func TestPositionRejectsGarbage(t *testing.T) {
	lines := runCommands(t,
		"position fen not a real fen at all",
		"position startpos moves e2e5",
		"quit")

	if !hasLine(lines, "info string invalid fen") {
		t.Error("bad FEN not reported")
	}
	if !hasLine(lines, "info string invalid move") {
		t.Error("illegal move not reported")
	}
}

func TestStalematePosition(t *testing.T) {
	lines := runCommands(t,
		"position fen 7k/5Q2/6K1/8/8/8/8/8 b - - 0 1",
		"go depth 2",
		"ucinewgame",
		"quit")

	if got := lastWith(lines, "bestmove "); got != "bestmove 0000" {
		t.Errorf("bestmove line %q, want bestmove 0000", got)
	}
}

// "position fen <fen> moves" with nothing after the keyword must not
// fold "moves" into the FEN string.
func TestPositionFENTrailingMovesKeyword(t *testing.T) {
	lines := runCommands(t,
		"position fen r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1 moves",
		"perft 1",
		"quit")

	if hasLine(lines, "info string invalid fen") {
		t.Error("valid fen rejected")
	}
	line := lastWith(lines, "info string perft")
	if !strings.Contains(line, "nodes 48") {
		t.Errorf("perft line %q, want 48 nodes", line)
	}
}

// A stop with no search pending is dropped; the next go must run.
func TestStrayStopDoesNotArmNextGo(t *testing.T) {
	lines := runCommands(t,
		"stop",
		"position startpos",
		"go depth 2",
		"ucinewgame",
		"quit")

	if !hasLine(lines, "info depth 2") {
		t.Error("search after an idle stop did not complete")
	}
	if lastWith(lines, "bestmove ") == "" {
		t.Error("no bestmove emitted")
	}
}

// A stop arriving right behind go must abort the search even when the
// search goroutine has not started working yet.
func TestStopImmediatelyAfterGo(t *testing.T) {
	lines := runCommands(t,
		"position startpos",
		"go infinite",
		"stop",
		"quit")

	best := lastWith(lines, "bestmove ")
	if best == "" || best == "bestmove 0000" {
		t.Errorf("bestmove line %q, want a legal move", best)
	}
}

func TestSetOptionRoutesToEngine(t *testing.T) {
	eng, err := engine.New(engine.Options{HashMB: 8, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}

	in := strings.NewReader("setoption name UCI_Chess960 value true\nquit\n")
	var out bytes.Buffer
	New(eng, in, &out, zerolog.Nop()).Run()

	if !eng.Chess960() {
		t.Error("UCI_Chess960 option did not reach the engine")
	}
}

func TestPerftCommand(t *testing.T) {
	lines := runCommands(t, "position startpos", "perft 3", "quit")

	line := lastWith(lines, "info string perft")
	if !strings.Contains(line, "nodes 8902") {
		t.Errorf("perft line %q, want 8902 nodes", line)
	}
}
