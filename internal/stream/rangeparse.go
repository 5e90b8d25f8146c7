package stream

import (
	"fmt"
	"strconv"
	"strings"
)

const rangeUnit = "bytes="

// ByteRange is an inclusive interval [Start, End] of a resource's bytes.
type ByteRange struct {
	Start int64
	End   int64
}

// Full returns the range covering a resource of size bytes.
func Full(size int64) ByteRange {
	return ByteRange{Start: 0, End: size - 1}
}

// ParseRange resolves a Range header against a resource of size bytes.
//
// Only a single "bytes=start-[end]" unit is understood. Anything else (no
// header, another unit, suffix ranges, multiple ranges, a bad start) yields
// the full resource so playback never aborts on a header it cannot read. An
// end that is missing, invalid or past the resource is clamped to size-1.
//
// The result is not necessarily satisfiable; check [ByteRange.Satisfiable].
func ParseRange(header string, size int64) ByteRange {
	ranges, ok := strings.CutPrefix(strings.TrimSpace(header), rangeUnit)
	if !ok || strings.Contains(ranges, ",") {
		return Full(size)
	}

	first, last, ok := strings.Cut(ranges, "-")
	if !ok {
		return Full(size)
	}

	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || start < 0 {
		return Full(size)
	}

	end := size - 1
	if n, err := strconv.ParseInt(strings.TrimSpace(last), 10, 64); err == nil && n < end {
		end = n
	}

	if start < size && end < start {
		return Full(size)
	}

	return ByteRange{Start: start, End: end}
}

// Satisfiable reports whether the range starts inside a resource of size bytes.
func (r ByteRange) Satisfiable(size int64) bool {
	return r.Start >= 0 && r.Start < size && r.Start <= r.End
}

// Length is the number of bytes the range covers.
func (r ByteRange) Length() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a resource of size bytes.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}
