// Package decode implements the line-21 closed-caption demodulator: it
// converts one scanline of luma samples into the two CEA-608 data bytes
// carried by the analog waveform, or a typed rejection when no valid
// signal is present.
//
// The waveform layout comes from FCC 73.699 figure 17: a seven-cycle
// run-in burst (25.1% of the signal span), dead space, a start bit, then
// two 7-bit-plus-parity characters. All timing is recovered per frame
// from the measured run-in length, so the decoder needs no prior
// knowledge of the capture resolution.
package decode

import (
	"errors"
	"fmt"
	"log/slog"
)

// Rejection reasons. Every one of these is terminal for the frame being
// decoded and none of them is a fault of the batch as a whole: a frame
// that carries no valid caption data is a normal outcome.
var (
	ErrBlankLine       = errors.New("peak brightness below signal threshold")
	ErrRunInNotFound   = errors.New("run-in burst not found")
	ErrRunInOutOfRange = errors.New("run-in length outside tolerance band")
	ErrSanityMismatch  = errors.New("dead-space/start-bit pattern mismatch")
	ErrOutOfRange      = errors.New("bit sample offset outside scanline")
	ErrParityMismatch  = errors.New("odd parity check failed")
)

// Result is the outcome of decoding one scanline. Err is nil when both
// data bytes validated; otherwise Err carries the rejection reason and
// Data is zero. Keeping the rejection typed avoids conflating a genuinely
// decoded null pair with "no caption data" — the wire sentinel exists
// only at the stream boundary, via Pair.
type Result struct {
	Data [2]byte
	Err  error
}

// Pair lowers the result to its wire form: the decoded bytes on success,
// the (0, 0) sentinel on any rejection.
func (r Result) Pair() (byte, byte) {
	if r.Err != nil {
		return 0, 0
	}
	return r.Data[0], r.Data[1]
}

// Decoder decodes scanlines. It holds only a logger; decoding itself is a
// pure function of the sample row, so a single Decoder is safe for
// concurrent use across frames.
type Decoder struct {
	log *slog.Logger
}

// New returns a Decoder that emits per-stage diagnostics to log at Debug
// level. A nil log disables diagnostics. Diagnostics never influence the
// decode outcome; every rejection returns through Result regardless of
// verbosity.
func New(log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Decoder{log: log}
}

// Frame decodes one scanline of luma samples into two caption bytes.
// The stages run strictly in sequence with no backtracking: normalize,
// locate the run-in, calibrate bit timing, check the dead-space/start-bit
// pattern, then assemble and validate both byte groups. The first guard
// that fails rejects the whole frame.
func (d *Decoder) Frame(samples []uint8) Result {
	bits, maxluma, err := normalize(samples)
	if err != nil {
		d.log.Debug("scanline rejected", "stage", "normalize", "maxluma", maxluma, "error", err)
		return Result{Err: err}
	}

	start, stop, err := locateRunIn(bits)
	if err != nil {
		d.log.Debug("scanline rejected", "stage", "run-in", "maxluma", maxluma, "error", err)
		return Result{Err: err}
	}

	tm := calibrate(bits, start, stop)
	d.log.Debug("run-in located",
		"start", start,
		"stop", stop,
		"bit_width", tm.bitWidth,
		"bit_start", tm.bitStart,
		"width", len(bits),
	)

	// The two dead-space bits and the start bit must read (0, 0, 1);
	// anything else means the timing lock is bogus.
	var sanity [3]uint8
	for i := range sanity {
		v, ok := tm.sample(bits, i-3)
		if !ok {
			d.log.Debug("scanline rejected", "stage", "sanity", "error", ErrOutOfRange)
			return Result{Err: ErrOutOfRange}
		}
		sanity[i] = v
	}
	if sanity != [3]uint8{0, 0, 1} {
		d.log.Debug("scanline rejected", "stage", "sanity",
			"pattern", fmt.Sprintf("%d%d%d", sanity[0], sanity[1], sanity[2]))
		return Result{Err: ErrSanityMismatch}
	}

	var data [2]byte
	for group := range data {
		b, err := assembleByte(bits, tm, group*8)
		if err != nil {
			d.log.Debug("scanline rejected", "stage", "assemble", "group", group, "error", err)
			return Result{Err: err}
		}
		data[group] = b
	}
	d.log.Debug("scanline decoded", "bytes", fmt.Sprintf("%#02x %#02x", data[0], data[1]))
	return Result{Data: data}
}

// assembleByte reads the seven data bits at base LSB-first and validates
// them against the trailing parity bit: the count of set data bits plus
// the parity bit must be odd.
func assembleByte(bits []uint8, tm timing, base int) (byte, error) {
	var b byte
	ones := 0
	for i := 0; i < 7; i++ {
		v, ok := tm.sample(bits, base+i)
		if !ok {
			return 0, ErrOutOfRange
		}
		if v == 1 {
			b |= 1 << i
			ones++
		}
	}
	p, ok := tm.sample(bits, base+7)
	if !ok {
		return 0, ErrOutOfRange
	}
	if (int(p)+ones)%2 != 1 {
		return 0, ErrParityMismatch
	}
	return b, nil
}
