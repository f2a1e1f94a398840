package runtime

import (
	"strconv"
	"strings"

	"github.com/wippyai/quickjs-bridge/errors"
)

// Engine modes understood by engine_new. The guest accepts any value; these
// select its two prebuilt feature sets.
const (
	ModeMini uint32 = 14587050
	ModeFull uint32 = 22448265
)

// ParseMode accepts "mini", "full" or a decimal mode number.
func ParseMode(s string) (uint32, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mini":
		return ModeMini, nil
	case "full", "":
		return ModeFull, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.InvalidInput(errors.PhaseConfig, "mode must be mini, full or a uint32: "+s)
	}
	return uint32(n), nil
}
