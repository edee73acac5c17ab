package uhf

// TagIterator walks the tag records of an inventory payload:
//
//	Num(1) + repeated [EPCLen(1), EPC(EPCLen)]
//
// It makes a single pass over the buffer and cannot be restarted.
type TagIterator struct {
	data      []byte
	cursor    int
	remaining int
	index     int
	tag       []byte
	err       error
}

// NewTagIterator returns an iterator over the inventory response data.
// Empty data yields no tags.
func NewTagIterator(data []byte) *TagIterator {
	it := &TagIterator{data: data}
	if len(data) > 0 {
		it.remaining = int(data[0])
		it.cursor = 1
	}
	return it
}

// Next advances to the next tag. It returns false when all declared tags have
// been read or the payload is truncated; check Err afterwards.
func (it *TagIterator) Next() bool {
	if it.err != nil || it.remaining == 0 {
		it.tag = nil
		return false
	}
	if it.cursor >= len(it.data) {
		it.fail("missing length byte of tag %d", it.index)
		return false
	}
	tagLen := int(it.data[it.cursor])
	start := it.cursor + 1
	end := start + tagLen
	if end > len(it.data) {
		it.fail("tag %d declares %d bytes, %d left", it.index, tagLen, len(it.data)-start)
		return false
	}
	tag := make([]byte, tagLen)
	copy(tag, it.data[start:end])
	it.tag = tag
	it.cursor = end
	it.remaining--
	it.index++
	return true
}

// Tag returns the EPC read by the last successful Next.
func (it *TagIterator) Tag() []byte {
	return it.tag
}

// Err returns the truncation error, if any.
func (it *TagIterator) Err() error {
	return it.err
}

func (it *TagIterator) fail(format string, args ...interface{}) {
	it.tag = nil
	it.remaining = 0
	it.err = newFrameError(ErrTruncatedInventory, it.data, format, args...)
}

// DecodeInventory decodes every tag in an inventory payload. A truncated
// payload returns an error and no tags.
func DecodeInventory(data []byte) ([][]byte, error) {
	it := NewTagIterator(data)
	var tags [][]byte
	for it.Next() {
		tags = append(tags, it.Tag())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}
