package zouhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/k0pernicus/zou/internal/utils"
)

var (
	ErrChunkFetchFailed = errors.New("chunk fetch failed")
	ErrSizeMismatch     = errors.New("size mismatch")
	ErrUnexpectedRange  = errors.New("unexpected content range")
)

// ChunkFetchError carries the task that could not be completed.
type ChunkFetchError struct {
	Task utils.ChunkTask
	Err  error
}

func (e *ChunkFetchError) Error() string {
	return fmt.Sprintf("chunk %d %s failed: %v", e.Task.ID, e.Task.Range, e.Err)
}

func (e *ChunkFetchError) Unwrap() error {
	return e.Err
}

func (e *ChunkFetchError) Is(target error) bool {
	return target == ErrChunkFetchFailed
}

func (f *Fetcher) fetchChunk(ctx context.Context, info utils.RemoteServerInfo, task utils.ChunkTask, dest io.WriterAt) error {
	if err := f.downloadChunk(ctx, info, task, dest); err != nil {
		return &ChunkFetchError{Task: task, Err: err}
	}
	return nil
}

func (f *Fetcher) downloadChunk(ctx context.Context, info utils.RemoteServerInfo, task utils.ChunkTask, dest io.WriterAt) error {
	headers := authHeaders(info)
	headers.Set("Range", task.Range.Header())
	headers.Set("Connection", "keep-alive")
	resp, err := f.transport.Send(ctx, http.MethodGet, task.URL, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		served, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return err
		}
		if served != task.Range {
			return fmt.Errorf("%w: requested %s, served %s", ErrUnexpectedRange, task.Range, served)
		}
	case resp.StatusCode == http.StatusOK && task.Range.Start == 0 && task.Range.End == info.ContentLength:
		// A full-body answer is only usable when this task is the whole resource.
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.limiter != nil {
		body = &throttledReader{ctx: ctx, r: body, limiter: f.limiter}
	}
	var out io.Writer = io.NewOffsetWriter(dest, int64(task.Offset))
	if f.progress != nil {
		out = &progressWriter{w: out, progress: f.progress}
	}

	expected := int64(task.Range.Len())
	buffer := make([]byte, utils.DefaultBufferSize)
	written, err := io.CopyBuffer(out, io.LimitReader(body, expected), buffer)
	if err != nil {
		return err
	}
	if written != expected {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrSizeMismatch, expected, written)
	}
	var extra [1]byte
	if n, _ := io.ReadFull(body, extra[:]); n > 0 {
		return fmt.Errorf("%w: body is longer than the expected %d bytes", ErrSizeMismatch, expected)
	}
	return nil
}

// parseContentRange reads a "bytes first-last/total" header into a half-open
// range.
func parseContentRange(value string) (utils.ByteRange, error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return utils.ByteRange{}, fmt.Errorf("%w: %q", ErrUnexpectedRange, value)
	}
	span, _, ok := strings.Cut(spec, "/")
	if !ok {
		return utils.ByteRange{}, fmt.Errorf("%w: %q", ErrUnexpectedRange, value)
	}
	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return utils.ByteRange{}, fmt.Errorf("%w: %q", ErrUnexpectedRange, value)
	}
	start, err := strconv.ParseUint(strings.TrimSpace(first), 10, 64)
	if err != nil {
		return utils.ByteRange{}, fmt.Errorf("%w: %q", ErrUnexpectedRange, value)
	}
	end, err := strconv.ParseUint(strings.TrimSpace(last), 10, 64)
	if err != nil || end < start {
		return utils.ByteRange{}, fmt.Errorf("%w: %q", ErrUnexpectedRange, value)
	}
	return utils.ByteRange{Start: start, End: end + 1}, nil
}

type progressWriter struct {
	w        io.Writer
	progress Progress
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.progress.Add(int64(n))
	}
	return n, err
}
