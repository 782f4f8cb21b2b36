package meshbvh

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	snapshotVersion = 1

	// Name of the gob entry inside a snapshot archive.
	snapshotEntry = "bvh.bin"
)

// Snapshot is a raw buffer copy of a built tree. It can be persisted or
// handed to another goroutine and turned back into a Tree over the same
// geometry without rebuilding.
type Snapshot struct {
	Version int

	// One encoded node buffer per root.
	Roots [][]byte

	// The tree's reordered index buffer in direct mode, nil in indirect mode.
	Index []uint32

	// The permutation buffer in indirect mode, nil in direct mode.
	Indirect []uint32
}

// Serialize copies the tree's buffers into a snapshot.
func (t *Tree) Serialize() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := &Snapshot{Version: snapshotVersion, Roots: make([][]byte, len(t.roots))}
	for i, nodes := range t.roots {
		snap.Roots[i] = encodeNodes(nodes)
	}
	if t.indirect != nil {
		snap.Indirect = append([]uint32(nil), t.indirect...)
		return snap
	}
	snap.Index = make([]uint32, t.index.Len())
	for i := range snap.Index {
		snap.Index[i] = uint32(t.index.At(i))
	}
	return snap
}

// Deserialize rebuilds a tree over geo from a snapshot. Only opts' logger,
// progress and allocation settings apply; the layout comes from the snapshot.
func Deserialize(geo *Geometry, snap *Snapshot, opts Options) (*Tree, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrSnapshotCorrupt)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	if err := geo.validate(); err != nil {
		return nil, err
	}
	if snap.Index == nil && snap.Indirect == nil {
		return nil, ErrIndexRequired
	}

	count := geo.TriangleCount()
	t := &Tree{geometry: geo, opts: opts, logger: opts.logger()}
	t.opts.Indirect = snap.Indirect != nil

	if snap.Indirect != nil {
		if err := checkPermutation(snap.Indirect, count); err != nil {
			return nil, err
		}
		t.index = geo.Index
		t.indirect = append([]uint32(nil), snap.Indirect...)
	} else {
		if len(snap.Index) != 3*count {
			return nil, fmt.Errorf("%w: index holds %d slots for %d triangles", ErrSnapshotCorrupt, len(snap.Index), count)
		}
		vertexCount := geo.Positions.Len()
		t.index = NewIndexBuffer(vertexCount, len(snap.Index))
		for i, v := range snap.Index {
			if int(v) >= vertexCount {
				return nil, fmt.Errorf("%w: index slot %d references vertex %d", ErrSnapshotCorrupt, i, v)
			}
			t.index.Set(i, int(v))
		}
	}

	if len(snap.Roots) == 0 {
		return nil, fmt.Errorf("%w: no roots", ErrSnapshotCorrupt)
	}
	t.roots = make([][]Node, len(snap.Roots))
	t.ranges = make([]Range, len(snap.Roots))
	cursor := 0
	for i, buf := range snap.Roots {
		nodes, err := decodeNodes(buf, count)
		if err != nil {
			return nil, err
		}
		r := subtreeRange(nodes, 0)
		if r.Start != cursor || r.Count <= 0 {
			return nil, fmt.Errorf("%w: root %d starts at %d, expected %d", ErrSnapshotCorrupt, i, r.Start, cursor)
		}
		t.roots[i] = nodes
		t.ranges[i] = Range{Start: r.Start, Count: r.Count}
		cursor = r.End()
	}
	if cursor != count {
		return nil, fmt.Errorf("%w: roots cover %d of %d triangles", ErrSnapshotCorrupt, cursor, count)
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if opts.SharedAllocation {
		t.roots = shareBacking(t.roots)
	}
	return t, nil
}

func checkPermutation(perm []uint32, count int) error {
	if len(perm) != count {
		return fmt.Errorf("%w: permutation holds %d entries for %d triangles", ErrSnapshotCorrupt, len(perm), count)
	}
	seen := make([]bool, count)
	for i, v := range perm {
		if int(v) >= count || seen[v] {
			return fmt.Errorf("%w: permutation entry %d is %d", ErrSnapshotCorrupt, i, v)
		}
		seen[v] = true
	}
	return nil
}

func (s *Snapshot) MarshalBinary() ([]byte, error) {
	if s == nil {
		return nil, ErrNilSnapshot
	}
	var buf bytes.Buffer
	type plain Snapshot
	if err := gob.NewEncoder(&buf).Encode((*plain)(s)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Snapshot) UnmarshalBinary(data []byte) error {
	type plain Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode((*plain)(s)); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	return nil
}

// SaveSnapshot writes the snapshot to a zip archive at path. The snapshot is
// encoded before path is touched; a failed write removes the partial file.
func SaveSnapshot(path string, snap *Snapshot) error {
	start := time.Now()

	data, err := snap.MarshalBinary()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeSnapshotArchive(f, data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}

	log.WithField("path", path).Debugf("wrote snapshot in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

func writeSnapshotArchive(w io.Writer, data []byte) error {
	zw := zip.NewWriter(w)
	entry, err := zw.Create(snapshotEntry)
	if err != nil {
		return err
	}
	if _, err := entry.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

// LoadSnapshot reads a snapshot archive written by SaveSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	start := time.Now()

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	var snap *Snapshot
	for _, f := range zr.File {
		if f.Name != snapshotEntry {
			log.WithField("path", path).Warnf("unknown entry %s in snapshot archive; skipping", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		entry, err := ioutil.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		snap = &Snapshot{}
		if err := snap.UnmarshalBinary(entry); err != nil {
			return nil, err
		}
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s has no %s entry", ErrSnapshotCorrupt, path, snapshotEntry)
	}

	log.WithField("path", path).Debugf("loaded snapshot in %d ms", time.Since(start).Nanoseconds()/1e6)
	return snap, nil
}
