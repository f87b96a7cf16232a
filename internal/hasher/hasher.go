package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ContentHash computes the xxHash64 of data and returns a hex string
// truncated to the given length (0 = full 16 chars).
func ContentHash(data []byte, hexLen int) string {
	return truncate(xxhash.Sum64(data), hexLen)
}

// ContentHashReader computes xxHash64 from a reader, streaming.
func ContentHashReader(r io.Reader, hexLen int) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return truncate(h.Sum64(), hexLen), nil
}

// Layout describes how a pixel buffer and its mask are interpreted.
type Layout struct {
	Width, Height int
	Channels      int
	HasAlpha      bool
	MaskWidth     int
	MaskHeight    int
}

// ImageKey identifies an image by its layout and buffers, so two embedded
// objects with byte-identical content map to the same key.
func ImageKey(l Layout, pix, mask []byte) uint64 {
	h := xxhash.New()
	var hdr [56]byte
	binary.BigEndian.PutUint64(hdr[0:], uint64(l.Width))
	binary.BigEndian.PutUint64(hdr[8:], uint64(l.Height))
	binary.BigEndian.PutUint64(hdr[16:], uint64(l.Channels))
	if l.HasAlpha {
		hdr[24] = 1
	}
	binary.BigEndian.PutUint64(hdr[32:], uint64(l.MaskWidth))
	binary.BigEndian.PutUint64(hdr[40:], uint64(l.MaskHeight))
	binary.BigEndian.PutUint64(hdr[48:], uint64(len(mask)))
	h.Write(hdr[:])
	h.Write(pix)
	h.Write(mask)
	return h.Sum64()
}

func truncate(v uint64, hexLen int) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	full := hex.EncodeToString(b[:])
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}
