// Command line21 extracts the closed-caption byte stream encoded on an
// analog "line 21" scanline from a batch of video frame images.
//
// Usage:
//
//	line21 [flags] <ccline> <file-or-dir>...
//
// ccline is the image row carrying the caption waveform. Directory
// arguments expand to their files in sorted name order. The recovered
// bytes are written raw, two per frame, to stdout or -output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zsiec/ccx"

	"github.com/zsiec/line21/batch"
	"github.com/zsiec/line21/frame"
)

var version = "dev"

func main() {
	threads := flag.Int("threads", 0, "number of decode workers (0 = all CPUs)")
	debug := flag.Bool("debug", false, "enable per-stage diagnostics and caption preview")
	output := flag.String("output", "", "byte stream output file (defaults to stdout)")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *debug || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}
	line, err := strconv.Atoi(args[0])
	if err != nil || line < 0 {
		slog.Error("ccline must be a non-negative row index", "arg", args[0])
		os.Exit(1)
	}
	frames, err := expandArgs(args[1:])
	if err != nil {
		slog.Error("bad input path", "error", err)
		os.Exit(1)
	}

	slog.Info("line21 starting",
		"version", version,
		"line", line,
		"frames", len(frames),
		"workers", *threads,
	)

	ext := batch.New(frame.Files{}, *threads, slog.With("component", "batch"))
	stream, err := ext.Extract(context.Background(), frames, line)
	if err != nil {
		slog.Error("extraction failed", "error", err)
		os.Exit(1)
	}
	decoded, rejected := ext.Stats()
	slog.Info("extraction complete",
		"decoded", decoded,
		"rejected", rejected,
		"bytes", len(stream),
	)

	if *debug {
		previewCaptions(frames, stream)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			slog.Error("cannot create output file", "path", *output, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if _, err := out.Write(stream); err != nil {
		slog.Error("writing byte stream", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"usage: line21 [flags] <ccline> <file-or-dir>...\n\nExtracts line-21 closed-caption bytes from frame images.\n\n")
	flag.PrintDefaults()
}

// expandArgs turns the positional file-or-directory arguments into the
// ordered frame list: files pass through as given, directories contribute
// their regular files in sorted name order.
func expandArgs(args []string) ([]string, error) {
	var files []string
	for _, a := range args {
		info, err := os.Stat(a)
		switch {
		case err != nil:
			return nil, fmt.Errorf("not a file or directory: %s", a)
		case info.IsDir():
			entries, err := os.ReadDir(a)
			if err != nil {
				return nil, fmt.Errorf("reading directory %s: %w", a, err)
			}
			for _, e := range entries {
				if e.Type().IsRegular() {
					files = append(files, filepath.Join(a, e.Name()))
				}
			}
		default:
			files = append(files, a)
		}
	}
	return files, nil
}

// previewCaptions runs the recovered pairs through a CEA-608 decoder and
// logs any readable text. Diagnostic only: the written stream is always
// the raw bytes, whatever the preview shows.
func previewCaptions(frames []string, stream []byte) {
	dec := ccx.NewCEA608Decoder()
	for i := range frames {
		text := dec.Decode(withParity(stream[2*i]), withParity(stream[2*i+1]))
		if text != "" {
			slog.Debug("caption text", "frame", frames[i], "text", text)
		}
	}
}

// withParity restores the odd-parity bit the demodulator strips, turning
// a decoded 7-bit value back into the CEA-608 wire byte the preview
// decoder expects. The (0, 0) sentinel becomes null padding, which the
// preview ignores.
func withParity(b byte) byte {
	if bits.OnesCount8(b)%2 == 0 {
		b |= 0x80
	}
	return b
}
