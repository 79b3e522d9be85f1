package segment

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

// Reader gives random access to one segment. The dictionary is decoded at
// open; postings blocks are decoded on demand.
type Reader struct {
	closer   io.Closer
	header   Header
	dict     []DictEntry
	postings []byte
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrCorruptIndex, fmt.Sprintf(format, args...))
}

// OpenReader opens the segment file at path.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	r, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader validates the segment held in src (size bytes long) and loads
// its dictionary and postings region, verifying the checksum.
func NewReader(src io.ReaderAt, size int64) (*Reader, error) {
	if size < int64(HeaderSize+FooterSize) {
		return nil, corrupt("segment is %d bytes, smaller than header and footer", size)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := src.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header := unmarshalHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, corrupt("bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, corrupt("unsupported format version %d", header.Version)
	}
	if header.PostOffset != int64(HeaderSize) ||
		header.PostSize < 0 || header.DictSize < 0 ||
		header.DictOffset != header.PostOffset+header.PostSize ||
		header.DictOffset+header.DictSize+int64(FooterSize) != size {
		return nil, corrupt("inconsistent region sizes in header")
	}

	body := make([]byte, header.PostSize+header.DictSize)
	if _, err := src.ReadAt(body, header.PostOffset); err != nil {
		return nil, fmt.Errorf("reading segment body: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := src.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(body); want != got {
		return nil, corrupt("checksum mismatch: footer %08x, computed %08x", want, got)
	}
	if int64(binary.LittleEndian.Uint64(footer[8:16])) != header.DictOffset {
		return nil, corrupt("footer dictionary offset disagrees with header")
	}

	var dict []DictEntry
	if err := json.Unmarshal(body[header.PostSize:], &dict); err != nil {
		return nil, corrupt("parsing dictionary: %v", err)
	}
	if len(dict) != int(header.TermCount) {
		return nil, corrupt("dictionary has %d terms, header says %d", len(dict), header.TermCount)
	}
	for i, e := range dict {
		if e.PostOffset < 0 || e.PostLen < 0 || e.PostOffset+int64(e.PostLen) > header.PostSize {
			return nil, corrupt("term %q points outside the postings region", e.Term)
		}
		if i > 0 && dict[i-1].Term >= e.Term {
			return nil, corrupt("dictionary not sorted at term %q", e.Term)
		}
	}
	return &Reader{
		header:   header,
		dict:     dict,
		postings: body[:header.PostSize],
	}, nil
}

// Lookup returns the postings of term in natural document order, or nil
// when the term is absent.
func (r *Reader) Lookup(term string) (index.PostingList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return nil, nil
	}
	return r.decode(r.dict[i])
}

func (r *Reader) decode(e DictEntry) (index.PostingList, error) {
	block := r.postings[e.PostOffset : e.PostOffset+int64(e.PostLen)]
	list, err := decodePostings(block)
	if err != nil {
		return nil, corrupt("term %q: %v", e.Term, err)
	}
	if len(list) != e.DocFreq {
		return nil, corrupt("term %q: %d postings, dictionary says %d", e.Term, len(list), e.DocFreq)
	}
	return list, nil
}

// Index decodes the whole segment into memory.
func (r *Reader) Index() (*index.Index, error) {
	idx := index.New()
	for _, e := range r.dict {
		list, err := r.decode(e)
		if err != nil {
			return nil, err
		}
		for _, p := range list {
			for _, pos := range p.Positions {
				idx.Add(e.Term, p.DocID, pos)
			}
		}
	}
	return idx, nil
}

// TermCount returns the number of terms in the dictionary.
func (r *Reader) TermCount() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) CreatedAt() time.Time {
	return time.Unix(r.header.CreatedAt, 0)
}

// Close releases the underlying file when the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadIndex opens the segment at path and decodes it fully.
func ReadIndex(path string) (*index.Index, error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Index()
}

type byteReader struct {
	buf []byte
	off int
}

func (b *byteReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(b.buf[b.off:])
	if n <= 0 {
		return 0, errors.New("truncated varint")
	}
	b.off += n
	return v, nil
}

func decodePostings(block []byte) (index.PostingList, error) {
	br := &byteReader{buf: block}
	n, err := br.uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(block)) {
		return nil, fmt.Errorf("document count %d exceeds block size", n)
	}
	list := make(index.PostingList, 0, n)
	for range n {
		idLen, err := br.uvarint()
		if err != nil {
			return nil, err
		}
		if idLen > uint64(len(block)-br.off) {
			return nil, errors.New("document id runs past block")
		}
		doc := index.DocID(block[br.off : br.off+int(idLen)])
		br.off += int(idLen)

		count, err := br.uvarint()
		if err != nil {
			return nil, err
		}
		if count == 0 || count > uint64(len(block)-br.off) {
			return nil, fmt.Errorf("document %s: bad position count %d", doc, count)
		}
		positions := make(index.Positions, 0, count)
		prev := 0
		for range count {
			delta, err := br.uvarint()
			if err != nil {
				return nil, err
			}
			if delta == 0 {
				return nil, fmt.Errorf("document %s: repeated position", doc)
			}
			prev += int(delta)
			positions = append(positions, prev)
		}
		list = append(list, index.Posting{DocID: doc, Positions: positions})
	}
	if br.off != len(block) {
		return nil, fmt.Errorf("%d trailing bytes", len(block)-br.off)
	}
	return list, nil
}
