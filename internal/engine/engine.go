package engine

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tkoivisto/peregrine/internal/board"
	"github.com/tkoivisto/peregrine/internal/nnue"
)

// Options configures an Engine.
type Options struct {
	HashMB       int
	Threads      int
	EvalFile     string
	Chess960     bool
	MoveOverhead time.Duration
	Search       SearchOptions
	History      HistoryConfig
	Logger       zerolog.Logger
}

// SearchInfo reports the state of the search after each completed
// iteration on the main worker.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	NPS      uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int
}

// SearchResult is the outcome of one search.
type SearchResult struct {
	BestMove board.Move
	Score    int
	Depth    int
	SelDepth int
	Nodes    uint64
	PV       []board.Move
}

// Engine owns the shared search state and fans a search out over a
// pool of lazy SMP workers.
type Engine struct {
	opts Options
	log  zerolog.Logger

	tt   *TranspositionTable
	hist *History
	corr *CorrectionHistory
	net  *nnue.Network

	pos     *board.Position
	history []uint64

	nodes atomic.Uint64
	stop  atomic.Bool

	// OnInfo, when set, receives a report after every completed depth.
	OnInfo func(SearchInfo)
}

// New builds an engine. A configured network file that fails to load is
// an error; use SetEvalFile for the forgiving path.
func New(opts Options) (*Engine, error) {
	if opts.HashMB <= 0 {
		opts.HashMB = 64
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.MoveOverhead <= 0 {
		opts.MoveOverhead = 10 * time.Millisecond
	}
	if opts.Search == (SearchOptions{}) {
		opts.Search = DefaultSearchOptions()
	}
	if opts.History == (HistoryConfig{}) {
		opts.History = DefaultHistoryConfig()
	}

	e := &Engine{
		opts: opts,
		log:  opts.Logger,
		tt:   NewTranspositionTable(opts.HashMB),
		hist: NewHistory(opts.History),
		corr: NewCorrectionHistory(),
		pos:  board.StartPosition(),
	}
	e.history = []uint64{e.pos.Hash}

	if opts.EvalFile != "" {
		net, err := nnue.LoadFile(opts.EvalFile)
		if err != nil {
			return nil, err
		}
		e.net = net
	}
	return e, nil
}

// SetEvalFile loads a network file, falling back to the classical
// evaluator when it cannot be read. An empty path unloads the network.
func (e *Engine) SetEvalFile(path string) {
	if path == "" {
		e.net = nil
		return
	}
	net, err := nnue.LoadFile(path)
	if err != nil {
		e.log.Warn().Err(err).Str("file", path).Msg("network load failed, using classical eval")
		e.net = nil
		return
	}
	e.net = net
	e.log.Info().Str("file", path).Msg("network loaded")
}

// SetPosition installs the root position together with the hashes of
// the positions that preceded it, which the search needs for
// repetition detection.
func (e *Engine) SetPosition(pos *board.Position, history []uint64) {
	e.pos = pos.Copy()
	e.history = append(e.history[:0], history...)
	e.history = append(e.history, pos.Hash)
}

// Position returns a copy of the current root position.
func (e *Engine) Position() *board.Position {
	return e.pos.Copy()
}

// SetHashSize resizes the transposition table.
func (e *Engine) SetHashSize(sizeMB int) {
	e.opts.HashMB = sizeMB
	e.tt.Resize(sizeMB)
}

// SetThreads sets the worker count for subsequent searches.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.opts.Threads = n
}

// SetMoveOverhead sets the per-move latency allowance.
func (e *Engine) SetMoveOverhead(d time.Duration) {
	if d > 0 {
		e.opts.MoveOverhead = d
	}
}

// SetChess960 toggles Chess960 move formatting.
func (e *Engine) SetChess960(on bool) {
	e.opts.Chess960 = on
}

// Chess960 reports the current castling notation mode.
func (e *Engine) Chess960() bool {
	return e.opts.Chess960
}

// ClearHash wipes the transposition table.
func (e *Engine) ClearHash() {
	e.tt.Clear()
}

// NewGame clears every table that carries state between searches.
func (e *Engine) NewGame() {
	e.tt.Clear()
	e.hist.Clear()
	e.corr.Clear()
}

// Stop raises the stop flag: a running search unwinds and Go returns
// the best result found so far. The flag latches, so a stop that lands
// before the search goroutine has entered Go still aborts that search;
// Go consumes it on return.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

func (e *Engine) newWorker(id int, tc *TimeControl, maxDepth, mateLimit int) *Worker {
	var eval Evaluator
	if e.net != nil {
		eval = nnue.NewAccumulator(e.net)
	} else {
		eval = NewClassical()
	}
	pos := e.pos.Copy()
	eval.Reset(pos)

	w := &Worker{
		id:        id,
		pos:       pos,
		eval:      eval,
		opts:      e.opts.Search,
		tt:        e.tt,
		hist:      e.hist,
		corr:      e.corr,
		nodes:     NewNodeCounter(&e.nodes),
		tc:        tc,
		stop:      &e.stop,
		maxDepth:  maxDepth,
		mateLimit: mateLimit,
	}
	w.hashes = append(w.hashes, e.history...)
	return w
}

// Go runs a blocking search under the given limits and returns the best
// result across all workers.
func (e *Engine) Go(limits Limits) SearchResult {
	e.nodes.Store(0)
	e.tt.NewSearch()

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}
	tc := NewTimeControl(limits, e.pos.SideToMove, e.opts.MoveOverhead)
	start := time.Now()

	workers := make([]*Worker, e.opts.Threads)
	for i := range workers {
		workers[i] = e.newWorker(i, tc, maxDepth, limits.Mate)
	}
	workers[0].onIteration = func(depth, seldepth, score int, pv []board.Move) {
		if e.OnInfo == nil {
			return
		}
		elapsed := time.Since(start)
		nodes := e.nodes.Load()
		var nps uint64
		if elapsed > 0 {
			nps = uint64(float64(nodes) / elapsed.Seconds())
		}
		e.OnInfo(SearchInfo{
			Depth:    depth,
			SelDepth: seldepth,
			Score:    score,
			Nodes:    nodes,
			NPS:      nps,
			Time:     elapsed,
			PV:       pv,
			HashFull: e.tt.HashFull(),
		})
	}

	if len(workers) == 1 {
		workers[0].iterate()
		workers[0].nodes.Flush()
	} else {
		var g errgroup.Group
		for _, w := range workers {
			w := w
			g.Go(func() error {
				w.iterate()
				w.nodes.Flush()
				return nil
			})
		}
		g.Wait()
	}
	e.stop.Store(false)

	best := bestWorker(workers)

	result := SearchResult{
		BestMove: best.bestMove,
		Score:    best.bestScore,
		Depth:    best.completedDepth,
		SelDepth: best.seldepth,
		Nodes:    e.nodes.Load(),
		PV:       best.pv.Line(),
	}
	if result.BestMove == board.NoMove {
		// Stopped before depth 1 finished. Any legal move beats none.
		var ml board.MoveList
		e.pos.GenerateLegalMoves(&ml)
		if ml.Len() > 0 {
			result.BestMove = ml.Get(0)
		}
	}

	e.log.Debug().
		Int("depth", result.Depth).
		Int("score", result.Score).
		Uint64("nodes", result.Nodes).
		Dur("time", time.Since(start)).
		Str("bestmove", result.BestMove.UCI(e.opts.Chess960)).
		Msg("search finished")

	return result
}

// bestWorker picks the final answer across the pool: the deepest
// completed iteration wins, ties go to the worker that searched the
// most nodes.
func bestWorker(workers []*Worker) *Worker {
	best := workers[0]
	for _, w := range workers[1:] {
		if w.bestMove == board.NoMove {
			continue
		}
		if best.bestMove == board.NoMove ||
			w.completedDepth > best.completedDepth ||
			(w.completedDepth == best.completedDepth && w.nodes.Count() > best.nodes.Count()) {
			best = w
		}
	}
	return best
}

// Perft counts leaf nodes of the legal move tree to the given depth.
func Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}
	var nodes uint64
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		undo := pos.MakeMove(m)
		nodes += Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}
