package model

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/brimdata/zml/zcode"
	"github.com/brimdata/zml/zqe"
	"github.com/pierrec/lz4/v4"
	"github.com/segmentio/ksuid"
	"golang.org/x/exp/slices"
)

// Archive layout:
//
//	"ZMLARCH1"
//	entry blobs
//	directory (zcode)
//	u64 directory offset
//	"ZMLARCH1"
const (
	ArchiveMagic = "ZMLARCH1"
	ManifestName = "manifest"
	trailerLen   = 8 + len(ArchiveMagic)
)

type Compression int

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
)

// DirEntry locates an entry in an archive.
type DirEntry struct {
	Name        string
	Offset      int64
	StoredLen   int
	RawLen      int
	Compression Compression
}

// Manifest describes a saved model as a whole.
type Manifest struct {
	ID       ksuid.KSUID
	Producer string
	Created  time.Time
}

// ArchiveWriter writes entries to an archive.  Entries are compressed with
// LZ4 when that makes them smaller.
type ArchiveWriter struct {
	w          io.Writer
	off        int64
	entries    []DirEntry
	manifest   Manifest
	compressor lz4.Compressor
	buf        []byte
}

// NewArchiveWriter returns an ArchiveWriter for w.  The archive is given a
// new model ID and producer is recorded in its manifest.
func NewArchiveWriter(w io.Writer, producer string) *ArchiveWriter {
	return &ArchiveWriter{
		w: w,
		manifest: Manifest{
			ID:       ksuid.New(),
			Producer: producer,
			Created:  time.Now().UTC(),
		},
	}
}

// Manifest returns the manifest that Close will write.
func (a *ArchiveWriter) Manifest() Manifest {
	return a.manifest
}

func (a *ArchiveWriter) write(b []byte) error {
	n, err := a.w.Write(b)
	a.off += int64(n)
	return err
}

// Add writes the entry named name.
func (a *ArchiveWriter) Add(name string, b []byte) error {
	if name == "" {
		return zqe.E(zqe.Invalid, "empty archive entry name")
	}
	if slices.IndexFunc(a.entries, func(e DirEntry) bool { return e.Name == name }) >= 0 {
		return zqe.E(zqe.Duplicate, "archive entry %q", name)
	}
	if a.off == 0 {
		if err := a.write([]byte(ArchiveMagic)); err != nil {
			return err
		}
	}
	entry := DirEntry{
		Name:        name,
		Offset:      a.off,
		RawLen:      len(b),
		Compression: CompressionNone,
	}
	if len(b) > 1 {
		// Use len(b)-1 so compression will fail if it doesn't result in
		// fewer bytes.
		a.buf = slices.Grow(a.buf[:0], len(b)-1)[:len(b)-1]
		zlen, err := a.compressor.CompressBlock(b, a.buf)
		if err != nil && err != lz4.ErrInvalidSourceShortBuffer {
			return err
		}
		if zlen > 0 {
			b = a.buf[:zlen]
			entry.Compression = CompressionLZ4
		}
	}
	entry.StoredLen = len(b)
	if err := a.write(b); err != nil {
		return err
	}
	a.entries = append(a.entries, entry)
	return nil
}

// Close writes the manifest, the directory and the trailer.  It does not
// close the underlying writer.
func (a *ArchiveWriter) Close() error {
	w := NewWriter()
	w.String(a.manifest.ID.String())
	w.String(a.manifest.Producer)
	if err := WriteValue(w, a.manifest.Created); err != nil {
		return err
	}
	if err := a.Add(ManifestName, w.Bytes()); err != nil {
		return err
	}
	dirOff := a.off
	w = NewWriter()
	w.Uint(uint64(len(a.entries)))
	for _, e := range a.entries {
		w.Begin()
		w.String(e.Name)
		w.Int(e.Offset)
		w.Int(int64(e.StoredLen))
		w.Int(int64(e.RawLen))
		w.Uint(uint64(e.Compression))
		w.End()
	}
	if err := a.write(w.Bytes()); err != nil {
		return err
	}
	trailer := binary.LittleEndian.AppendUint64(nil, uint64(dirOff))
	return a.write(append(trailer, ArchiveMagic...))
}

// Archive reads the entries of an archive written by an ArchiveWriter.
type Archive struct {
	r        io.ReaderAt
	entries  []DirEntry
	manifest Manifest
}

// ReadArchive returns the archive held in b.
func ReadArchive(b []byte) (*Archive, error) {
	return OpenArchive(bytes.NewReader(b), int64(len(b)))
}

// OpenArchive reads the directory and manifest of the archive of the given
// size held by r.
func OpenArchive(r io.ReaderAt, size int64) (*Archive, error) {
	if size < int64(len(ArchiveMagic)+trailerLen) {
		return nil, zqe.E(zqe.Decode, "not a model archive: %d bytes", size)
	}
	head := make([]byte, len(ArchiveMagic))
	if _, err := r.ReadAt(head, 0); err != nil {
		return nil, err
	}
	trailer := make([]byte, trailerLen)
	if _, err := r.ReadAt(trailer, size-int64(trailerLen)); err != nil {
		return nil, err
	}
	if string(head) != ArchiveMagic || string(trailer[8:]) != ArchiveMagic {
		return nil, zqe.E(zqe.Decode, "not a model archive: bad magic")
	}
	dirOff := int64(binary.LittleEndian.Uint64(trailer))
	dirEnd := size - int64(trailerLen)
	if dirOff < int64(len(ArchiveMagic)) || dirOff > dirEnd {
		return nil, zqe.E(zqe.Decode, "model archive directory offset %d out of range", dirOff)
	}
	dir := make([]byte, dirEnd-dirOff)
	if _, err := r.ReadAt(dir, dirOff); err != nil {
		return nil, err
	}
	a := &Archive{r: r}
	if err := a.readDirectory(dir, dirOff); err != nil {
		return nil, err
	}
	if err := a.readManifest(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) readDirectory(dir zcode.Bytes, limit int64) error {
	rd := NewReader(dir)
	n := rd.Len()
	for k := 0; k < n && rd.Err() == nil; k++ {
		rd.Begin()
		e := DirEntry{
			Name:        rd.String(),
			Offset:      rd.Int(),
			StoredLen:   rd.Count(),
			RawLen:      rd.Count(),
			Compression: Compression(rd.Uint()),
		}
		rd.End()
		if rd.Err() != nil {
			break
		}
		if e.Offset < int64(len(ArchiveMagic)) || e.Offset+int64(e.StoredLen) > limit {
			return zqe.E(zqe.Decode, "archive entry %q out of range", e.Name)
		}
		if e.Compression != CompressionNone && e.Compression != CompressionLZ4 {
			return zqe.E(zqe.Decode, "archive entry %q: unknown compression format %d", e.Name, e.Compression)
		}
		a.entries = append(a.entries, e)
	}
	if err := rd.Err(); err != nil {
		return err
	}
	if !rd.Done() {
		return zqe.E(zqe.Decode, "trailing bytes in archive directory")
	}
	return nil
}

func (a *Archive) readManifest() error {
	b, err := a.Read(ManifestName)
	if err != nil {
		return err
	}
	r := NewReader(b)
	id, err := ksuid.Parse(r.String())
	if r.Err() != nil {
		return r.Err()
	}
	if err != nil {
		return zqe.E(zqe.Decode, "archive manifest: %w", err)
	}
	a.manifest.ID = id
	a.manifest.Producer = r.String()
	a.manifest.Created, err = ReadValue[time.Time](r)
	return err
}

func (a *Archive) Manifest() Manifest {
	return a.manifest
}

// Entries returns the directory in the order the entries were written.
func (a *Archive) Entries() []DirEntry {
	return slices.Clone(a.entries)
}

// Has returns true if the archive has an entry named name.
func (a *Archive) Has(name string) bool {
	_, ok := a.lookup(name)
	return ok
}

func (a *Archive) lookup(name string) (DirEntry, bool) {
	k := slices.IndexFunc(a.entries, func(e DirEntry) bool { return e.Name == name })
	if k < 0 {
		return DirEntry{}, false
	}
	return a.entries[k], true
}

// Read returns the uncompressed contents of the entry named name.
func (a *Archive) Read(name string) ([]byte, error) {
	e, ok := a.lookup(name)
	if !ok {
		return nil, zqe.E(zqe.NotFound, "model archive has no entry %q", name)
	}
	stored := make([]byte, e.StoredLen)
	if _, err := a.r.ReadAt(stored, e.Offset); err != nil {
		return nil, err
	}
	if e.Compression == CompressionNone {
		return stored, nil
	}
	raw := make([]byte, e.RawLen)
	n, err := lz4.UncompressBlock(stored, raw)
	if err != nil {
		return nil, zqe.E(zqe.Decode, "archive entry %q: %w", e.Name, err)
	}
	if n != len(raw) {
		return nil, zqe.E(zqe.Decode, "archive entry %q: got %d uncompressed bytes, expected %d", e.Name, n, len(raw))
	}
	return raw, nil
}
