package decode

import "math"

// normalize converts luma samples into a binary row against an adaptive
// threshold at half the row's peak brightness. Rows whose peak is under
// 32 (1/8 brightness) carry no signal at all and are rejected before any
// thresholding.
//
// Each sample is scaled to a percentage of the peak. Values in the 45-55
// band carry the previous classification forward so a wobbly signal does
// not toggle near the midpoint; the band is checked before the 50% split
// on purpose, and the first sample carries forward an initial 0.
func normalize(samples []uint8) ([]uint8, int, error) {
	maxluma := 0
	for _, s := range samples {
		if int(s) > maxluma {
			maxluma = int(s)
		}
	}
	if maxluma < 32 {
		return nil, maxluma, ErrBlankLine
	}

	bits := make([]uint8, len(samples))
	last := uint8(0)
	for i, s := range samples {
		v := 100 * int(s) / maxluma
		switch {
		case v >= 45 && v <= 55:
			bits[i] = last
		case v > 50:
			bits[i] = 1
		default:
			bits[i] = 0
		}
		last = bits[i]
	}
	return bits, maxluma, nil
}

// locateRunIn finds the calibration burst. The first high sample must sit
// within the leading 5% of the row; later than that is too late to be a
// burst start. The seven-cycle burst crosses the midline 14 times, and
// the locator already consumed the first crossing, so the 13th transition
// after it marks the end of the run-in. That end must land between 20%
// and 30% of the row: the burst occupies 25.1% of the signal span, with
// tolerance for capture scaling.
func locateRunIn(bits []uint8) (start, stop int, err error) {
	width := len(bits)

	start = -1
	for i, b := range bits {
		if b == 1 {
			start = i
			break
		}
	}
	if start < 0 || float64(start) > 0.05*float64(width) {
		return 0, 0, ErrRunInNotFound
	}

	last := uint8(1)
	count := 0
	stop = -1
	for i := start; i < width; i++ {
		if bits[i] != last {
			last = bits[i]
			count++
			if count == 13 {
				stop = i
				break
			}
		}
	}
	if stop < 0 {
		return 0, 0, ErrRunInNotFound
	}
	if float64(stop) < 0.20*float64(width) || float64(stop) > 0.30*float64(width) {
		return 0, 0, ErrRunInOutOfRange
	}
	return start, stop, nil
}

// timing holds the per-frame measurements that map logical bit indices to
// sample offsets.
type timing struct {
	bitWidth int
	bitStart int
}

// calibrate derives bit timing from the measured run-in. The run-in is
// 25.1% of the total signal span and one data bit is 3.8% of it. The bit
// grid is anchored one bit width after the rising edge of the start bit
// rather than at the nominal dead-space boundary, which absorbs jitter
// between the run-in and the data region.
func calibrate(bits []uint8, start, stop int) timing {
	runInLength := stop - start
	dataSpan := float64(runInLength) / 0.251
	bitWidth := int(math.Ceil(dataSpan * 0.038))

	edge := stop
	for bits[edge] == 0 && edge < len(bits)-1 {
		edge++
	}
	return timing{bitWidth: bitWidth, bitStart: edge + bitWidth}
}

// sample reads the logical value of a bit slot at its midpoint. Negative
// indices address the dead-space bits (-3, -2) and the start bit (-1);
// 0-15 are the data and parity bits. ok is false when the computed offset
// falls outside the row, which is fatal for the frame being decoded.
func (t timing) sample(bits []uint8, bit int) (v uint8, ok bool) {
	offset := t.bitStart + bit*t.bitWidth + t.bitWidth/2
	if offset < 0 || offset >= len(bits) {
		return 0, false
	}
	return bits[offset], true
}
