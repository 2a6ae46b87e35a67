// Package icns encodes and decodes appearance-tagged ICNS icon families and
// assembles them from resolved icon sets.
//
// A family is the 'icns' magic, a big-endian uint32 total length, and a list
// of elements. Each element is a four byte type, a big-endian uint32 length
// that includes its 8 byte header, and data. Families written by this package
// start with a 'TOC ' element listing the type and length of every following
// element. Non-default appearances are stored as a single element whose data
// is a complete nested family.
package icns

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// OSType is a four character element type.
type OSType [4]byte

func (t OSType) String() string {
	printable := true
	for _, b := range t {
		if b < 0x20 || b > 0x7e {
			printable = false
		}
	}
	if printable {
		return string(t[:])
	}
	return fmt.Sprintf("0x%08X", binary.BigEndian.Uint32(t[:]))
}

func osType(s string) OSType {
	var t OSType
	copy(t[:], s)
	return t
}

var (
	magic   = osType("icns")
	tocType = osType("TOC ")
)

const headerLen = 8

// ErrInvalidFamily is returned when data is not a well-formed icon family.
var ErrInvalidFamily = errors.New("invalid icns family")

// Element is one typed chunk of a family.
type Element struct {
	Type OSType
	Data []byte
}

// Encode writes a family made of elements, preceded by a table of contents.
// The output depends only on the elements and their order.
func Encode(w io.Writer, elements []Element) error {
	toc := make([]byte, 0, len(elements)*headerLen)
	total := headerLen
	for _, e := range elements {
		n := headerLen + len(e.Data)
		toc = append(toc, e.Type[:]...)
		toc = binary.BigEndian.AppendUint32(toc, uint32(n))
		total += n
	}
	if len(elements) > 0 {
		total += headerLen + len(toc)
	}

	buf := make([]byte, 0, total)
	buf = append(buf, magic[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(total))
	if len(elements) > 0 {
		buf = appendElement(buf, tocType, toc)
	}
	for _, e := range elements {
		buf = appendElement(buf, e.Type, e.Data)
	}
	_, err := w.Write(buf)
	return err
}

func appendElement(buf []byte, t OSType, data []byte) []byte {
	buf = append(buf, t[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(headerLen+len(data)))
	return append(buf, data...)
}

// EncodeBytes is Encode into a new buffer.
func EncodeBytes(elements []Element) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, elements) // writes to a bytes.Buffer cannot fail
	return buf.Bytes()
}

// Decode parses a family and returns its elements in file order, without the
// table of contents.
func Decode(data []byte) ([]Element, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: %d byte header", ErrInvalidFamily, len(data))
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidFamily, data[:4])
	}
	total := int(binary.BigEndian.Uint32(data[4:8]))
	if total != len(data) {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrInvalidFamily, total, len(data))
	}

	var elements []Element
	for off := headerLen; off < total; {
		if total-off < headerLen {
			return nil, fmt.Errorf("%w: truncated element header at offset %d", ErrInvalidFamily, off)
		}
		var t OSType
		copy(t[:], data[off:off+4])
		n := int(binary.BigEndian.Uint32(data[off+4 : off+8]))
		if n < headerLen || off+n > total {
			return nil, fmt.Errorf("%w: element %s at offset %d has length %d", ErrInvalidFamily, t, off, n)
		}
		if t != tocType {
			elements = append(elements, Element{Type: t, Data: data[off+headerLen : off+n]})
		}
		off += n
	}
	return elements, nil
}
