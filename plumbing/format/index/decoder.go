package index

import (
	"bufio"
	"crypto/sha1"
	"encoding/binary"
	"hash"
	"io"
	"time"

	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
)

var indexSignature = [4]byte{'D', 'I', 'R', 'C'}

// entryHeaderLength is the size in bytes of an entry's fixed fields: four
// u32 timestamps, dev, inode, mode, uid, gid, size (ten u32s total), the
// 20-byte OID, and the u16 flags word.
const entryHeaderLength = 4*10 + plumbing.HashSize + 2

// Decoder reads an index file from a stream, checking its trailing
// checksum as it goes. buffered is read directly, bypassing the hash, to
// pull out the trailing checksum itself without folding it into the sum.
type Decoder struct {
	r        io.Reader
	buffered *bufio.Reader
	sum      hash.Hash
	buf      [entryHeaderLength]byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sum := sha1.New()
	buffered := bufio.NewReader(r)
	return &Decoder{r: io.TeeReader(buffered, sum), buffered: buffered, sum: sum}
}

// Decode reads a whole index file into idx.
func (d *Decoder) Decode(idx *Index) error {
	version, err := d.readHeader()
	if err != nil {
		return err
	}
	idx.Version = version

	count, err := d.readUint32()
	if err != nil {
		return err
	}

	idx.Entries = make([]*Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		e, err := d.readEntry()
		if err != nil {
			return err
		}
		idx.Entries = append(idx.Entries, e)
	}

	return d.readChecksum()
}

func (d *Decoder) readHeader() (uint32, error) {
	var sig [4]byte
	if _, err := io.ReadFull(d.r, sig[:]); err != nil {
		return 0, err
	}
	if sig != indexSignature {
		return 0, ErrMalformedSignature
	}

	version, err := d.readUint32()
	if err != nil {
		return 0, err
	}
	if version != Version {
		return 0, ErrUnsupportedVersion
	}
	return version, nil
}

func (d *Decoder) readUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (d *Decoder) readEntry() (*Entry, error) {
	if _, err := io.ReadFull(d.r, d.buf[:]); err != nil {
		return nil, err
	}

	e := &Entry{}
	u32 := func(off int) uint32 { return binary.BigEndian.Uint32(d.buf[off : off+4]) }

	csec, cnsec := u32(0), u32(4)
	msec, mnsec := u32(8), u32(12)
	if csec != 0 || cnsec != 0 {
		e.CreatedAt = time.Unix(int64(csec), int64(cnsec))
	}
	if msec != 0 || mnsec != 0 {
		e.ModifiedAt = time.Unix(int64(msec), int64(mnsec))
	}

	e.Dev = u32(16)
	e.Inode = u32(20)
	e.Mode = filemode.FileMode(u32(24))
	e.UID = u32(28)
	e.GID = u32(32)
	e.Size = u32(36)
	copy(e.Hash[:], d.buf[40:40+plumbing.HashSize])
	flags := binary.BigEndian.Uint16(d.buf[40+plumbing.HashSize : entryHeaderLength])

	e.Stage = Stage((flags >> 12) & 0x3)
	nameLen := int(flags & nameMask)

	var name []byte
	if nameLen < nameMask {
		name = make([]byte, nameLen)
		if _, err := io.ReadFull(d.r, name); err != nil {
			return nil, err
		}
		// This branch hasn't consumed the name's mandatory NUL terminator
		// yet; readUntilNUL below already has.
		var nul [1]byte
		if _, err := io.ReadFull(d.r, nul[:]); err != nil {
			return nil, err
		}
	} else {
		n, err := d.readUntilNUL()
		if err != nil {
			return nil, err
		}
		name = n
	}
	e.Name = string(name)

	// +1 accounts for the NUL terminator, already consumed by either branch.
	read := entryHeaderLength + len(name) + 1
	return e, d.consumePadding(read)
}

// readUntilNUL reads a name longer than nameMask can encode, consuming its
// NUL terminator without including it in the returned name, so the
// caller's padding accounting — which always accounts for exactly one
// mandatory terminator — stays uniform across both name-length branches.
func (d *Decoder) readUntilNUL() ([]byte, error) {
	var out []byte
	var b [1]byte
	for {
		if _, err := io.ReadFull(d.r, b[:]); err != nil {
			return nil, err
		}
		if b[0] == 0 {
			return out, nil
		}
		out = append(out, b[0])
	}
}

// consumePadding discards the zero bytes padding an entry (including its
// NUL terminator, already accounted for in read) out to the next 8-byte
// boundary (spec §3 "path (NUL-terminated, padded to 8-byte boundary)").
func (d *Decoder) consumePadding(read int) error {
	padLen := (8 - read%8) % 8
	if padLen == 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, d.r, int64(padLen))
	return err
}

func (d *Decoder) readChecksum() error {
	expected := d.sum.Sum(nil)

	var got [plumbing.HashSize]byte
	if _, err := io.ReadFull(d.buffered, got[:]); err != nil {
		return err
	}

	for i := range expected {
		if expected[i] != got[i] {
			return ErrInvalidChecksum
		}
	}
	return nil
}
