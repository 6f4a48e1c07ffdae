package vectorindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// File layout (v1):
//   0..7   magic "RAGVEC01"
//   8..15  dim (uint64 LE)
//   16..23 count (uint64 LE)
//   24..   count*dim float32 LE vectors in insertion order
const headerSize = 24

var fileMagic = [8]byte{'R', 'A', 'G', 'V', 'E', 'C', '0', '1'}

// ErrCorruptIndex reports a persisted index file that cannot be trusted.
// It is fatal: silently starting empty would hide data loss, so callers
// must decide whether to reset and rebuild.
var ErrCorruptIndex = errors.New("corrupt index file")

// Match is a single search result: the insertion position of a stored
// vector and its squared Euclidean distance from the query.
type Match struct {
	Position int
	Distance float32
}

// FlatIndex is an append-only exact nearest-neighbor index over
// fixed-dimension vectors. Positions are assigned sequentially starting
// at 0 and are never reused, reclaimed or reordered; there is no delete
// or update. The whole index lives in memory and is persisted wholesale
// to a single file by Flush.
//
// A FlatIndex is safe for concurrent use: appends take the write lock,
// searches proceed concurrently under the read lock.
type FlatIndex struct {
	mu      sync.RWMutex
	path    string
	dim     int
	vectors []float32 // flattened, count*dim
	count   int
}

// Open loads the index persisted at path, or returns a fresh empty index
// when no file exists there. A file that exists but cannot be parsed, or
// whose stored dimension differs from dim, yields ErrCorruptIndex.
func Open(path string, dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}

	ix := &FlatIndex{path: path, dim: dim}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ix, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat index file: %w", err)
	}

	if err := ix.read(f, info.Size()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptIndex, path, err)
	}
	return ix, nil
}

func (ix *FlatIndex) read(r io.Reader, size int64) error {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("short header: %v", err)
	}

	var magic [8]byte
	copy(magic[:], header[:8])
	if magic != fileMagic {
		return errors.New("magic mismatch")
	}

	dim := binary.LittleEndian.Uint64(header[8:16])
	count := binary.LittleEndian.Uint64(header[16:24])
	if int(dim) != ix.dim {
		return fmt.Errorf("dimension mismatch: file has %d, want %d", dim, ix.dim)
	}

	// The header's count must agree with the bytes actually present, or
	// the allocations below would trust an arbitrary value from disk.
	rowSize := dim * 4
	payloadSize := uint64(size - headerSize)
	if payloadSize%rowSize != 0 || payloadSize/rowSize != count {
		return fmt.Errorf("count %d inconsistent with file size %d", count, size)
	}

	payload := make([]byte, count*dim*4)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("short payload: %v", err)
	}

	vectors := make([]float32, count*dim)
	for i := range vectors {
		bits := binary.LittleEndian.Uint32(payload[i*4:])
		vectors[i] = math.Float32frombits(bits)
	}

	ix.vectors = vectors
	ix.count = int(count)
	return nil
}

// Append stores vec and returns its assigned position, which equals the
// index size immediately before the insert. The vector is copied.
func (ix *FlatIndex) Append(vec []float32) (int, error) {
	if len(vec) != ix.dim {
		return 0, fmt.Errorf("vector has dimension %d, index expects %d", len(vec), ix.dim)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	position := ix.count
	ix.vectors = append(ix.vectors, vec...)
	ix.count++
	return position, nil
}

// Search returns up to k matches ordered by ascending distance, ties
// broken by lower position. An empty index returns no matches; k larger
// than the index size returns every stored vector.
func (ix *FlatIndex) Search(query []float32, k int) ([]Match, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), ix.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.count == 0 {
		return nil, nil
	}

	matches := make([]Match, ix.count)
	for pos := 0; pos < ix.count; pos++ {
		row := ix.vectors[pos*ix.dim : (pos+1)*ix.dim]
		var dist float64
		for j, q := range query {
			d := float64(q) - float64(row[j])
			dist += d * d
		}
		matches[pos] = Match{Position: pos, Distance: float32(dist)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Size returns the number of stored vectors.
func (ix *FlatIndex) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.count
}

// Dimension returns the configured vector dimension.
func (ix *FlatIndex) Dimension() int {
	return ix.dim
}

// Flush rewrites the whole index to disk. The write goes to a temp file
// in the same directory and is renamed into place, so a crash mid-write
// leaves the previous file intact.
func (ix *FlatIndex) Flush() error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	buf := make([]byte, headerSize+len(ix.vectors)*4)
	copy(buf[:8], fileMagic[:])
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ix.dim))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(ix.count))
	for i, v := range ix.vectors {
		binary.LittleEndian.PutUint32(buf[headerSize+i*4:], math.Float32bits(v))
	}

	tmp, err := os.CreateTemp(filepath.Dir(ix.path), ".vectors-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err := os.Rename(tmpName, ix.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

// Close persists the index one last time.
func (ix *FlatIndex) Close() error {
	return ix.Flush()
}
