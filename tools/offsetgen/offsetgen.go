// Command offsetgen generates deterministic access traces for standalone
// block-cache benchmarking (outside `go test`). It emits newline-separated
// "stream\tposition" pairs, where stream is a synthetic pack name and
// position is a block-aligned byte offset within it, following either a
// uniform or Zipf distribution over stream popularity.
//
// Usage:
//
//	go run ./tools/offsetgen -n 1000000 -streams 4096 -dist=zipf -seed=42 -out trace.tsv
//
// Flags:
//
//	-n         number of (stream, position) pairs to generate (default 1e6)
//	-streams   number of distinct synthetic streams (default 4096)
//	-blocks    blocks per stream, bounds the position range (default 256)
//	-blocksize block size in bytes, used to compute aligned positions (default 65536)
//	-dist      distribution over stream popularity: uniform or zipf (default uniform)
//	-zipfs     Zipf s parameter (>1) (default 1.2)
//	-zipfv     Zipf v parameter (>0) (default 1.0)
//	-seed      PRNG seed (default current time)
//	-out       output file (default stdout)
//
// © 2025 dfsblockcache authors. MIT License.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		n         = flag.Int("n", 1_000_000, "number of (stream, position) pairs to generate")
		streams   = flag.Uint64("streams", 4096, "number of distinct synthetic streams")
		blocks    = flag.Uint64("blocks", 256, "blocks per stream")
		blockSize = flag.Int64("blocksize", 64<<10, "block size in bytes")
		dist      = flag.String("dist", "uniform", "distribution: uniform or zipf")
		zipfS     = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV     = flag.Float64("zipfv", 1.0, "zipf v parameter (>0)")
		seedVal   = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath   = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	rnd := rand.New(rand.NewSource(*seedVal))

	var streamGen func() uint64
	switch *dist {
	case "uniform":
		streamGen = func() uint64 { return rnd.Uint64() % *streams }
	case "zipf":
		if *zipfS <= 1.0 || *zipfV <= 0 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >0")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, *streams-1)
		streamGen = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	for i := 0; i < *n; i++ {
		stream := streamGen()
		blockIdx := rnd.Uint64() % *blocks
		pos := int64(blockIdx) * *blockSize
		fmt.Fprintf(w, "pack-%04d.pack\t%d\n", stream, pos)
	}
}
