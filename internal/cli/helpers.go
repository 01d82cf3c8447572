package cli

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"github.com/dustin/go-humanize"
)

const hzPerMHz = 1e6

// formatFreq renders a frequency with an SI prefix, e.g. "2.4 GHz".
func formatFreq(f cpu.Frequency) string {
	return humanize.SIWithDigits(float64(f)*hzPerMHz, 2, "Hz")
}

func formatTemp(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "enable", "enabled":
		return true, nil
	case "off", "false", "0", "disable", "disabled":
		return false, nil
	}

	return false, errors.New().WithMessage(errors.ErrInvalidArgument, fmt.Sprintf("expected on or off, got %q", s))
}

func parseFreq(s string) (cpu.Frequency, error) {
	mhz, err := strconv.ParseUint(strings.TrimSuffix(strings.ToLower(s), "mhz"), 10, 0)
	if err != nil || mhz == 0 {
		return 0, errors.New().WithMessage(errors.ErrInvalidArgument, fmt.Sprintf("invalid frequency %q, expected MHz", s))
	}

	return cpu.Frequency(mhz), nil
}

// freqRange returns the lowest, highest and mean of freqs.
func freqRange(freqs []cpu.Frequency) (lo, hi, avg cpu.Frequency) {
	if len(freqs) == 0 {
		return 0, 0, 0
	}

	lo, hi = freqs[0], freqs[0]
	var sum uint64
	for _, f := range freqs {
		lo = min(lo, f)
		hi = max(hi, f)
		sum += uint64(f)
	}

	return lo, hi, cpu.Frequency(sum / uint64(len(freqs)))
}
