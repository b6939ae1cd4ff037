package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets keep out of every every events through. A zero every disables sampling.
type sampler struct {
	keep  atomic.Uint64
	every atomic.Uint64
	seen  atomic.Uint64
}

func (s *sampler) set(keep, every int) {
	if keep <= 0 || every <= 0 {
		keep, every = 0, 0
	}
	if keep > every {
		keep = every
	}
	s.keep.Store(uint64(keep))
	s.every.Store(uint64(every))
	s.seen.Store(0)
}

func (s *sampler) allow() bool {
	every := s.every.Load()
	if every == 0 {
		return true
	}
	n := s.seen.Add(1) - 1
	return n%every < s.keep.Load()
}

// parseSampleRatio reads "k/n" or "n" (meaning 1/n). "0", "all" and "off" disable
// sampling; unparsable values yield def.
func parseSampleRatio(ratio string, def [2]int) (int, int) {
	ratio = strings.ToLower(strings.TrimSpace(ratio))
	switch ratio {
	case "":
		return def[0], def[1]
	case "0", "all", "off":
		return 0, 0
	}
	if k, n, ok := strings.Cut(ratio, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(k))
		den, err2 := strconv.Atoi(strings.TrimSpace(n))
		if err1 != nil || err2 != nil || num <= 0 || den <= 0 {
			return def[0], def[1]
		}
		return num, den
	}
	n, err := strconv.Atoi(ratio)
	if err != nil || n < 0 {
		return def[0], def[1]
	}
	if n == 0 {
		return 0, 0
	}
	return 1, n
}
