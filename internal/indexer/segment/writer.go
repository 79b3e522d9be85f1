// Package segment implements the binary (.pii.bin) form of a conversation
// index. A segment is laid out as
//
//	header (64 bytes) | postings blocks | JSON dictionary | footer (32 bytes)
//
// All integers are little-endian. Each postings block holds one term: a
// uvarint document count, then per document (in natural order) the id
// length, the id bytes, the position count, and the positions delta-encoded
// as uvarints. The dictionary is sorted by term so readers can binary-search
// it without decoding any postings. The footer carries a CRC32 over the
// postings and dictionary regions.
package segment

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

const (
	MagicBytes    uint32 = 0x50494931 // "PII1"
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// Header is the fixed-size record at the start of every segment.
type Header struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
}

// DictEntry locates one term's postings block relative to the start of the
// postings region.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

func (h Header) marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.PostSize))
	return b
}

func unmarshalHeader(b []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[16:24])),
		DictOffset: int64(binary.LittleEndian.Uint64(b[24:32])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[32:40])),
		PostOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[48:56])),
	}
}

// Write encodes idx as a segment onto w. An empty index produces a valid
// segment with no terms.
func Write(w io.Writer, idx *index.Index) error {
	entries := idx.Entries()
	var postings bytes.Buffer
	dict := make([]DictEntry, 0, len(entries))
	var scratch []byte
	for _, entry := range entries {
		scratch = encodePostings(scratch[:0], entry.Postings)
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: int64(postings.Len()),
			PostLen:    len(scratch),
			DocFreq:    len(entry.Postings),
		})
		postings.Write(scratch)
	}
	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}

	header := Header{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(entries)),
		DocCount:   uint32(idx.DocCount()),
		CreatedAt:  time.Now().Unix(),
		PostOffset: int64(HeaderSize),
		PostSize:   int64(postings.Len()),
		DictSize:   int64(len(dictData)),
	}
	header.DictOffset = header.PostOffset + header.PostSize

	crc := crc32.NewIEEE()
	crc.Write(postings.Bytes())
	crc.Write(dictData)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], header.DocCount)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(header.DictOffset))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(header.DictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(header.PostSize))

	for _, part := range [][]byte{header.marshal(), postings.Bytes(), dictData, footer} {
		if _, err := w.Write(part); err != nil {
			return fmt.Errorf("writing segment: %w", err)
		}
	}
	return nil
}

func encodePostings(buf []byte, list index.PostingList) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(list)))
	for _, p := range list {
		buf = binary.AppendUvarint(buf, uint64(len(p.DocID)))
		buf = append(buf, p.DocID...)
		buf = binary.AppendUvarint(buf, uint64(len(p.Positions)))
		prev := 0
		for _, pos := range p.Positions {
			buf = binary.AppendUvarint(buf, uint64(pos-prev))
			prev = pos
		}
	}
	return buf
}
