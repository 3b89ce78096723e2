package logstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aboosoyeed/flyq/internal/codec"
)

const defaultIndexInterval = 100

type indexEntry struct {
	offset uint64
	pos    uint64
}

// segment is one append-only log file plus its sparse offset index. A
// partition is a sequence of segments keyed by base offset; only one
// segment — the active one — accepts appends at a time.
type segment struct {
	mu sync.Mutex

	baseOffset uint64
	path       string
	indexPath  string
	file       *os.File
	indexFile  *os.File

	size       uint64
	lastOffset uint64
	index      []indexEntry

	indexInterval uint32
	indexCounter  uint32
}

func segmentFilename(baseOffset uint64) string {
	return fmt.Sprintf("segment_%020d.log", baseOffset)
}

func segmentIndexFilename(baseOffset uint64) string {
	return fmt.Sprintf("segment_%020d.index", baseOffset)
}

// parseBaseOffset recovers the base offset encoded in a segment's log or
// index filename.
func parseBaseOffset(filename string) (uint64, bool) {
	name := strings.TrimPrefix(filename, "segment_")
	if name == filename {
		return 0, false
	}
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".log"), ".index")
	offset, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return offset, true
}

// newSegment creates a fresh, empty segment rooted at baseOffset.
func newSegment(dir string, baseOffset uint64) (*segment, error) {
	path := filepath.Join(dir, segmentFilename(baseOffset))
	_, file, err := openFileAt(path)
	if err != nil {
		return nil, err
	}
	indexPath := filepath.Join(dir, segmentIndexFilename(baseOffset))
	_, indexFile, err := openFileAt(indexPath)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &segment{
		baseOffset:    baseOffset,
		path:          path,
		indexPath:     indexPath,
		file:          file,
		indexFile:     indexFile,
		lastOffset:    baseOffset,
		indexInterval: defaultIndexInterval,
		indexCounter:  defaultIndexInterval,
	}, nil
}

// recoverSegment reopens an existing segment file, rebuilding its size and
// sparse index from whatever index entries survived, then replays any
// records written after the last indexed offset to recover the true
// last-offset and catch a torn write at the tail.
func recoverSegment(dir, filename string) (*segment, uint64, error) {
	baseOffset, ok := parseBaseOffset(filename)
	if !ok {
		return nil, 0, fmt.Errorf("logstore: not a segment filename: %s", filename)
	}

	path := filepath.Join(dir, filename)
	_, file, err := openFileAt(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("logstore: stat %s: %w", path, err)
	}

	indexPath := filepath.Join(dir, segmentIndexFilename(baseOffset))
	index, indexFile, lastIndexed, err := loadIndex(indexPath)
	if err != nil {
		file.Close()
		return nil, 0, err
	}

	seg := &segment{
		baseOffset:    baseOffset,
		path:          path,
		indexPath:     indexPath,
		file:          file,
		indexFile:     indexFile,
		size:          uint64(info.Size()),
		lastOffset:    lastIndexed,
		index:         index,
		indexInterval: defaultIndexInterval,
		indexCounter:  defaultIndexInterval,
	}
	if seg.lastOffset < baseOffset {
		seg.lastOffset = baseOffset
	}

	// Replay anything written after the last indexed offset, to recover
	// true last-offset and stop cleanly at a torn tail write.
	resumeFrom := seg.lastOffset + 1
	it, err := seg.streamFromOffset(resumeFrom)
	if err == nil {
		for {
			offset, _, err := it.next()
			if err == io.EOF {
				break
			}
			if err != nil {
				break // stop recovery on parse/torn-write failure
			}
			if offset > seg.lastOffset {
				seg.lastOffset = offset
			}
		}
		it.close()
	}

	return seg, seg.lastOffset + 1, nil
}

func loadIndex(path string) ([]indexEntry, *os.File, uint64, error) {
	existed, f, err := openFileAt(path)
	if err != nil {
		return nil, nil, 0, err
	}
	var index []indexEntry
	var lastOffset uint64
	if existed {
		r, err := os.Open(path)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("logstore: open index %s: %w", path, err)
		}
		defer r.Close()
		buf := make([]byte, 16)
		for {
			if _, err := io.ReadFull(r, buf); err != nil {
				break
			}
			entry := indexEntry{
				offset: binary.BigEndian.Uint64(buf[0:8]),
				pos:    binary.BigEndian.Uint64(buf[8:16]),
			}
			index = append(index, entry)
			lastOffset = entry.offset
		}
	}
	return index, f, lastOffset, nil
}

// isSegmentFile reports whether name looks like a segment log file.
func isSegmentFile(name string) bool {
	return strings.HasPrefix(name, "segment_") && strings.HasSuffix(name, ".log")
}

func (s *segment) append(offset uint64, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.size
	n, err := s.file.Write(body)
	if err != nil {
		return fmt.Errorf("logstore: write segment %s: %w", s.path, err)
	}
	s.size += uint64(n)
	if offset > s.lastOffset {
		s.lastOffset = offset
	}

	if s.shouldIndex(offset) {
		if err := s.writeIndexEntry(offset, pos); err != nil {
			return err
		}
	}
	return nil
}

func (s *segment) shouldIndex(offset uint64) bool {
	if offset == s.baseOffset {
		return true
	}
	if s.indexCounter == 0 {
		s.indexCounter = s.indexInterval
		return true
	}
	s.indexCounter--
	return false
}

func (s *segment) writeIndexEntry(offset, pos uint64) error {
	var entry [16]byte
	binary.BigEndian.PutUint64(entry[0:8], offset)
	binary.BigEndian.PutUint64(entry[8:16], pos)
	if _, err := s.indexFile.Write(entry[:]); err != nil {
		return fmt.Errorf("logstore: write index %s: %w", s.indexPath, err)
	}
	s.index = append(s.index, indexEntry{offset: offset, pos: pos})
	return nil
}

// nearestPos returns the file position of the sparse index entry closest to
// but not after offset, or 0 if the index has nothing that early.
func (s *segment) nearestPos(offset uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.index) == 0 {
		return 0
	}
	i := sort.Search(len(s.index), func(i int) bool { return s.index[i].offset > offset })
	if i == 0 {
		return 0
	}
	return s.index[i-1].pos
}

func (s *segment) sizeBytes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *segment) close() error {
	err1 := s.file.Close()
	err2 := s.indexFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// segmentIterator streams records from one segment file in offset order,
// starting at or after a requested offset, skipping any stale record the
// sparse index forced it to scan past on the way there.
type segmentIterator struct {
	reader *bufio.Reader
	file   *os.File
	offset uint64
	done   bool
}

func (s *segment) streamFromOffset(offset uint64) (*segmentIterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("logstore: open segment for read %s: %w", s.path, err)
	}
	pos := s.nearestPos(offset)
	if _, err := f.Seek(int64(pos), io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("logstore: seek segment %s: %w", s.path, err)
	}
	return &segmentIterator{reader: bufio.NewReader(f), file: f, offset: offset}, nil
}

// next returns the next record at or after the iterator's target offset,
// io.EOF once the segment is exhausted cleanly, or any other error on a
// torn or corrupt tail record.
func (it *segmentIterator) next() (uint64, codec.Record, error) {
	for !it.done {
		var lenBuf [4]byte
		if _, err := io.ReadFull(it.reader, lenBuf[:]); err != nil {
			it.done = true
			if err == io.EOF {
				return 0, codec.Record{}, io.EOF
			}
			return 0, codec.Record{}, fmt.Errorf("logstore: read record length: %w", err)
		}

		recLen := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, recLen)
		if _, err := io.ReadFull(it.reader, body); err != nil {
			it.done = true
			return 0, codec.Record{}, fmt.Errorf("logstore: torn record: %w", err)
		}

		offset, rec, err := codec.DecodeBody(body)
		if err != nil {
			it.done = true
			return 0, codec.Record{}, err
		}
		if offset < it.offset {
			continue // stale record scanned past on the way to the target
		}
		it.offset = offset + 1
		return offset, rec, nil
	}
	return 0, codec.Record{}, io.EOF
}

func (it *segmentIterator) close() error {
	return it.file.Close()
}
