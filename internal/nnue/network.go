// Package nnue evaluates positions with an efficiently updatable
// neural network: one quantized hidden layer fed by piece-square
// features, maintained incrementally as the search makes and unmakes
// moves.
package nnue

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Architecture: 768 one-hot input features per perspective (12 piece
// kinds x 64 squares, mirrored as described in features.go) feeding
// HiddenSize neurons, then clipped ReLU and a single output neuron over
// both perspectives, side to move first.
const (
	InputSize  = 768
	HiddenSize = 512

	// Quantization levels baked into the weight file.
	qLevelA   = 255
	qLevelB   = 64
	evalScale = 400

	netMagic   = 0x4e524750 // "PGRN" on disk
	netVersion = 1
)

// Network holds the trained weights. Loaded once and shared read-only
// by every search worker. Feature weights are laid out feature-major so
// one feature's weight row is contiguous for the accumulator updates.
type Network struct {
	FeatureWeights [InputSize * HiddenSize]int16
	FeatureBias    [HiddenSize]int16
	OutputWeights  [2 * HiddenSize]int16
	OutputBias     int32
}

// LoadFile reads a network from disk. Files with a .zst suffix are
// decompressed transparently.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 1<<20)
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd network %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	net, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("load network %s: %w", path, err)
	}
	return net, nil
}

// Read parses the binary network format: a magic/version/hidden-size
// header followed by the weight blocks, all little-endian.
func Read(r io.Reader) (*Network, error) {
	var header struct {
		Magic   uint32
		Version uint32
		Hidden  uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header.Magic != netMagic {
		return nil, fmt.Errorf("bad magic %#x", header.Magic)
	}
	if header.Version != netVersion {
		return nil, fmt.Errorf("unsupported version %d", header.Version)
	}
	if header.Hidden != HiddenSize {
		return nil, fmt.Errorf("hidden size %d, built for %d", header.Hidden, HiddenSize)
	}

	net := &Network{}
	for _, block := range []any{
		net.FeatureWeights[:],
		net.FeatureBias[:],
		net.OutputWeights[:],
		&net.OutputBias,
	} {
		if err := binary.Read(r, binary.LittleEndian, block); err != nil {
			return nil, fmt.Errorf("read weights: %w", err)
		}
	}
	return net, nil
}

// Write serializes the network in the format Read expects. Used by the
// training export tooling and by tests.
func (n *Network) Write(w io.Writer) error {
	header := struct {
		Magic   uint32
		Version uint32
		Hidden  uint32
	}{netMagic, netVersion, HiddenSize}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, block := range []any{
		n.FeatureWeights[:],
		n.FeatureBias[:],
		n.OutputWeights[:],
		n.OutputBias,
	} {
		if err := binary.Write(w, binary.LittleEndian, block); err != nil {
			return fmt.Errorf("write weights: %w", err)
		}
	}
	return nil
}

// InitRandom fills the network with small reproducible pseudo random
// weights. Only for tests, the values carry no chess knowledge.
func (n *Network) InitRandom(seed uint64) {
	state := seed
	next := func() int16 {
		state = state*6364136223846793005 + 1442695040888963407
		return int16(state>>48)%32 - 16
	}
	for i := range n.FeatureWeights {
		n.FeatureWeights[i] = next()
	}
	for i := range n.FeatureBias {
		n.FeatureBias[i] = next() * 4
	}
	for i := range n.OutputWeights {
		n.OutputWeights[i] = next()
	}
	n.OutputBias = int32(next()) * 16
}
