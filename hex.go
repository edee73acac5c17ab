package uhf

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexReadable renders data as upper-case hex pairs joined by sep,
// e.g. HexReadable([]byte{0x01, 0x02}, ":") == "01:02".
func HexReadable(data []byte, sep string) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, sep)
}

// TagID is the de-duplication key of a tag: its EPC as upper-case hex.
func TagID(epc []byte) string {
	return strings.ToUpper(hex.EncodeToString(epc))
}

// ParseTagID is the inverse of TagID. Separators (space, ':' and '-') are
// ignored so ids copied from HexReadable output are accepted.
func ParseTagID(id string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(id)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("uhf: invalid tag id %q: %w", id, err)
	}
	return b, nil
}
