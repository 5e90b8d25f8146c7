package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ChunkSize is the largest chunk a [ChunkReader] hands out.
const ChunkSize = 4096

// ChunkReader yields the bytes of one [ByteRange] of a file, one chunk at a time.
//
// The chunk returned by Next is only valid until the following call. The file is
// closed as soon as the range is exhausted or a read fails, and Close may be
// called any number of times. A ChunkReader is not safe for concurrent use.
type ChunkReader struct {
	f         *os.File
	buf       []byte
	remaining int64
	err       error
}

// OpenChunks opens path and positions it at r.Start.
func OpenChunks(path string, r ByteRange) (*ChunkReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek %s to %d: %w", path, r.Start, err)
	}

	size := min(int64(ChunkSize), max(r.Length(), 1))
	return &ChunkReader{f: f, buf: make([]byte, size), remaining: r.Length()}, nil
}

// Next returns the next chunk of the range.
//
// It returns [io.EOF] once every byte of the range has been returned, and
// [io.ErrUnexpectedEOF] when the file ends before the range does. After any
// error the reader is closed and keeps returning that error.
func (c *ChunkReader) Next() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.remaining <= 0 {
		return nil, c.fail(io.EOF)
	}

	want := min(int64(len(c.buf)), c.remaining)
	n, err := io.ReadFull(c.f, c.buf[:want])
	c.remaining -= int64(n)

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n == 0 {
			return nil, c.fail(io.ErrUnexpectedEOF)
		}
		// Hand out what was read; the next call reports the short file.
		c.fail(io.ErrUnexpectedEOF)
		return c.buf[:n], nil
	case err != nil:
		return nil, c.fail(fmt.Errorf("failed to read chunk: %w", err))
	}

	return c.buf[:n], nil
}

// Remaining is the number of range bytes not yet returned.
func (c *ChunkReader) Remaining() int64 {
	return c.remaining
}

// WriteTo copies the rest of the range to w, one chunk per Write.
//
// The reader is closed on return whatever the outcome.
func (c *ChunkReader) WriteTo(w io.Writer) (int64, error) {
	defer c.Close()

	var written int64
	for {
		chunk, err := c.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}

		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
}

// Close releases the file. It is safe to call more than once.
func (c *ChunkReader) Close() error {
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	if c.err == nil {
		c.err = errReaderClosed
	}
	return err
}

var errReaderClosed = errors.New("chunk reader closed")

func (c *ChunkReader) fail(err error) error {
	c.err = err
	if c.f != nil {
		c.f.Close()
		c.f = nil
	}
	return err
}
