package httpx

import (
	"bytes"
	"io"
	"os"
)

// BodyKind identifies which concrete storage a Body uses. A handler or
// client filter picks a BodyKind after inspecting headers but before any
// body bytes are read (the two-phase contract in RequestGenerator.Body /
// ResponseGenerator.Body).
type BodyKind int

const (
	// BodyKindEmpty discards body bytes without storing them (e.g. for
	// GET/DELETE handlers that never look at the body).
	BodyKindEmpty BodyKind = iota
	// BodyKindString buffers the body in memory as a string.
	BodyKindString
	// BodyKindFile streams the body straight to a file on disk, never
	// buffering it fully in memory.
	BodyKindFile
)

func (k BodyKind) String() string {
	switch k {
	case BodyKindString:
		return "string"
	case BodyKindFile:
		return "file"
	default:
		return "empty"
	}
}

// Body is the common surface shared by every concrete body storage
// variant: in-memory string, on-disk file, or nothing at all.
type Body interface {
	Kind() BodyKind
	// Size reports the number of bytes currently held (after a read) or
	// 0 before one has happened.
	Size() int64
	// WriteTo serializes the body's bytes to w, used when writing a
	// response (or a client request) onto the wire.
	WriteTo(w io.Writer) (int64, error)
}

// fillable is implemented by bodies that can be populated by reading up
// to `limit` bytes from r. It is the receiving half of the two-phase
// protocol: storage is chosen by a filter, then filled here.
type fillable interface {
	Body
	fill(r io.Reader, limit int64) error
}

// StringBody buffers the entire body in memory.
type StringBody struct {
	Data string
}

func (b *StringBody) Kind() BodyKind { return BodyKindString }
func (b *StringBody) Size() int64    { return int64(len(b.Data)) }

func (b *StringBody) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, b.Data)
	return int64(n), err
}

func (b *StringBody) fill(r io.Reader, limit int64) error {
	buf := make([]byte, limit)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	b.Data = string(buf[:n])
	return nil
}

// FileBody streams the body straight to disk at Path, never buffering
// the full payload in memory — this is what makes a 5 GB upload via a
// request filter possible.
type FileBody struct {
	Path string
	size int64
	file *os.File
}

// NewFileBody opens (creating/truncating) the file at path for writing;
// used by a request filter's Setup callback.
func NewFileBody(path string) (*FileBody, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileBody{Path: path, file: f}, nil
}

func (b *FileBody) Kind() BodyKind { return BodyKindFile }
func (b *FileBody) Size() int64    { return b.size }

func (b *FileBody) WriteTo(w io.Writer) (int64, error) {
	f, err := os.Open(b.Path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

func (b *FileBody) fill(r io.Reader, limit int64) error {
	if b.file == nil {
		f, err := os.OpenFile(b.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		b.file = f
	}
	defer b.file.Close()

	n, err := io.CopyN(b.file, r, limit)
	b.size = n
	if err == io.EOF {
		return nil
	}
	return err
}

// EmptyBody represents "no body" — bytes are drained (if any arrive) and
// discarded.
type EmptyBody struct{}

func (EmptyBody) Kind() BodyKind            { return BodyKindEmpty }
func (EmptyBody) Size() int64               { return 0 }
func (EmptyBody) WriteTo(io.Writer) (int64, error) { return 0, nil }

func (b *EmptyBody) fill(r io.Reader, limit int64) error {
	_, err := io.CopyN(io.Discard, r, limit)
	if err == io.EOF {
		return nil
	}
	return err
}

// ReadAll materializes b's bytes in memory regardless of which concrete
// Body variant holds them — the REST envelope (and anything else that
// needs to run a JSON decoder) does not care whether the body came back
// as a StringBody or a FileBody.
func ReadAll(b Body) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewBody constructs the default storage for kind; used when a filter
// declines to supply its own Setup.
func NewBody(kind BodyKind) (Body, error) {
	switch kind {
	case BodyKindString:
		return &StringBody{}, nil
	case BodyKindFile:
		return nil, ErrNoFilterStorage
	default:
		return &EmptyBody{}, nil
	}
}
