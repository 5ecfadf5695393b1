package shared

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

const DefaultServerAddr = "127.0.0.1:4500"

// ParseSeqList parses a comma separated list of fragment sequence numbers
// such as "1,4,7". An empty string yields no numbers.
func ParseSeqList(s string) ([]int, error) {
	var seqs []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		seq, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid sequence number %q: %w", field, err)
		}
		if seq < 0 {
			return nil, fmt.Errorf("invalid sequence number %d", seq)
		}
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	return slices.Compact(seqs), nil
}
