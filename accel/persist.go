package accel

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/achilleasa/sahtrace/log"
)

// Size of a persisted node: 6 float32 bbox extents, int32 kind, int32 axis
// and two uint32 payload words.
const nodeRecordSize = 40

// Nodes are decoded in chunks so that a corrupt count fails when the data
// runs out instead of triggering a huge allocation.
const readChunkSize = 4096

var byteOrder = binary.LittleEndian

// Dump writes the tree to path using the flat binary layout:
//
// uint64 nodeCount | nodeCount * node record | uint64 indexCount | indexCount * uint32
//
// All values are little-endian. A partially written file is removed.
func (bvh *BVH) Dump(path string) error {
	logger := log.New("bvh io")
	start := time.Now()

	if err := writeFile(path, bvh); err != nil {
		return err
	}

	logger.Noticef("wrote %d nodes and %d indices to %s in %d ms", len(bvh.nodes), len(bvh.indices), path, time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Write src to path. The file is removed if any write fails so that a
// truncated tree is never left behind.
func writeFile(path string, src io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}

	if _, err = src.WriteTo(f); err != nil {
		f.Close()
		os.Remove(path)
		if ioErr, ok := err.(*IOError); ok {
			ioErr.Path = path
			return ioErr
		}
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err = f.Close(); err != nil {
		os.Remove(path)
		return &IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// WriteTo implements io.WriterTo using the same layout as Dump.
func (bvh *BVH) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	var buf [nodeRecordSize]byte

	byteOrder.PutUint64(buf[:8], uint64(len(bvh.nodes)))
	n, err := bw.Write(buf[:8])
	written += int64(n)
	if err != nil {
		return written, &IOError{Op: "write", Err: err}
	}

	for i := range bvh.nodes {
		encodeNode(buf[:], &bvh.nodes[i])
		n, err = bw.Write(buf[:])
		written += int64(n)
		if err != nil {
			return written, &IOError{Op: "write", Err: err}
		}
	}

	byteOrder.PutUint64(buf[:8], uint64(len(bvh.indices)))
	n, err = bw.Write(buf[:8])
	written += int64(n)
	if err != nil {
		return written, &IOError{Op: "write", Err: err}
	}

	for _, index := range bvh.indices {
		byteOrder.PutUint32(buf[:4], index)
		n, err = bw.Write(buf[:4])
		written += int64(n)
		if err != nil {
			return written, &IOError{Op: "write", Err: err}
		}
	}

	if err = bw.Flush(); err != nil {
		return written, &IOError{Op: "write", Err: err}
	}
	return written, nil
}

// Load reads a tree previously written by Dump. Callers should check the
// loaded tree against their mesh using ValidateMesh as the format does not
// identify the mesh it was built for.
func Load(path string) (*BVH, error) {
	logger := log.New("bvh io")
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	bvh, err := Read(f)
	if err != nil {
		if ioErr, ok := err.(*IOError); ok {
			ioErr.Path = path
		}
		return nil, err
	}

	logger.Noticef("loaded %d nodes and %d indices from %s in %d ms", len(bvh.nodes), len(bvh.indices), path, time.Since(start).Nanoseconds()/1e6)
	return bvh, nil
}

// Read decodes a tree from r and validates its structure.
func Read(r io.Reader) (*BVH, error) {
	br := bufio.NewReader(r)
	var buf [nodeRecordSize]byte

	nodeCount, err := readCount(br, buf[:8])
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, minCount(nodeCount, readChunkSize))
	for i := uint64(0); i < nodeCount; i++ {
		if _, err = io.ReadFull(br, buf[:]); err != nil {
			return nil, readError(err)
		}
		nodes = append(nodes, decodeNode(buf[:]))
	}

	indexCount, err := readCount(br, buf[:8])
	if err != nil {
		return nil, err
	}

	indices := make([]uint32, 0, minCount(indexCount, readChunkSize))
	for i := uint64(0); i < indexCount; i++ {
		if _, err = io.ReadFull(br, buf[:4]); err != nil {
			return nil, readError(err)
		}
		indices = append(indices, byteOrder.Uint32(buf[:4]))
	}

	bvh := &BVH{
		nodes:   nodes,
		indices: indices,
	}
	if err = bvh.validateTree(); err != nil {
		return nil, err
	}
	return bvh, nil
}

func readCount(r io.Reader, buf []byte) (uint64, error) {
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, readError(err)
	}
	count := byteOrder.Uint64(buf)
	if count > math.MaxUint32 {
		return 0, fmt.Errorf("%w: count %d exceeds 32-bit offsets", ErrCorruptTree, count)
	}
	return count, nil
}

// Truncated data indicates a corrupt file; anything else is an I/O failure.
func readError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: unexpected end of data", ErrCorruptTree)
	}
	return &IOError{Op: "read", Err: err}
}

func minCount(count uint64, limit int) int {
	if count < uint64(limit) {
		return int(count)
	}
	return limit
}

func encodeNode(buf []byte, node *Node) {
	for axis := 0; axis < 3; axis++ {
		byteOrder.PutUint32(buf[4*axis:], math.Float32bits(node.Min[axis]))
		byteOrder.PutUint32(buf[12+4*axis:], math.Float32bits(node.Max[axis]))
	}
	byteOrder.PutUint32(buf[24:], uint32(node.kind))
	byteOrder.PutUint32(buf[28:], uint32(node.axis))
	byteOrder.PutUint32(buf[32:], node.data[0])
	byteOrder.PutUint32(buf[36:], node.data[1])
}

func decodeNode(buf []byte) Node {
	var node Node
	for axis := 0; axis < 3; axis++ {
		node.Min[axis] = math.Float32frombits(byteOrder.Uint32(buf[4*axis:]))
		node.Max[axis] = math.Float32frombits(byteOrder.Uint32(buf[12+4*axis:]))
	}
	node.kind = NodeKind(int32(byteOrder.Uint32(buf[24:])))
	node.axis = int32(byteOrder.Uint32(buf[28:]))
	node.data[0] = byteOrder.Uint32(buf[32:])
	node.data[1] = byteOrder.Uint32(buf[36:])
	return node
}

// Check that the decoded nodes form a depth-first binary tree rooted at node
// 0 whose leafs reference valid index ranges. Collects the tree stats as a
// side effect.
func (bvh *BVH) validateTree() error {
	numNodes := uint64(len(bvh.nodes))
	numIndices := uint64(len(bvh.indices))
	if numNodes == 0 {
		if numIndices != 0 {
			return fmt.Errorf("%w: %d indices without any nodes", ErrCorruptTree, numIndices)
		}
		return nil
	}

	depth := make([]int, numNodes)
	parents := make([]uint8, numNodes)
	stats := Stats{Triangles: int(numIndices)}

	for i := range bvh.nodes {
		node := &bvh.nodes[i]
		if i > 0 && parents[i] != 1 {
			return fmt.Errorf("%w: node %d is referenced by %d parents", ErrCorruptTree, i, parents[i])
		}
		if depth[i] > stats.MaxDepth {
			stats.MaxDepth = depth[i]
		}

		switch node.kind {
		case KindLeaf:
			count, offset := uint64(node.data[0]), uint64(node.data[1])
			if offset+count > numIndices {
				return fmt.Errorf("%w: leaf %d range [%d, %d) exceeds %d indices", ErrCorruptTree, i, offset, offset+count, numIndices)
			}
			stats.Leaves++
		case KindBranch:
			if node.axis < 0 || node.axis > 2 {
				return fmt.Errorf("%w: branch %d has split axis %d", ErrCorruptTree, i, node.axis)
			}
			for _, child := range node.data {
				if uint64(child) <= uint64(i) || uint64(child) >= numNodes {
					return fmt.Errorf("%w: branch %d references child %d", ErrCorruptTree, i, child)
				}
				if parents[child] == 1 {
					return fmt.Errorf("%w: node %d is referenced by more than one parent", ErrCorruptTree, child)
				}
				parents[child]++
				depth[child] = depth[i] + 1
			}
			stats.Branches++
		default:
			return fmt.Errorf("%w: node %d has unknown kind %d", ErrCorruptTree, i, node.kind)
		}
	}

	bvh.stats = stats
	bvh.depth = stats.MaxDepth
	return nil
}
