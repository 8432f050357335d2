package index

import (
	"crypto/sha1"
	"encoding/binary"
	"hash"
	"io"
)

// Encoder writes an Index in the binary format Decoder reads back.
type Encoder struct {
	out io.Writer
	w   io.Writer
	sum hash.Hash
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	sum := sha1.New()
	return &Encoder{out: w, w: io.MultiWriter(w, sum), sum: sum}
}

// Encode writes idx: header, entries in the order idx.Entries holds them
// (it does not sort them), then the trailing checksum of everything
// written so far.
func (e *Encoder) Encode(idx *Index) error {
	if err := e.writeHeader(idx); err != nil {
		return err
	}
	for _, entry := range idx.Entries {
		if err := e.writeEntry(entry); err != nil {
			return err
		}
	}
	return e.writeChecksum()
}

func (e *Encoder) writeHeader(idx *Index) error {
	if _, err := e.w.Write(indexSignature[:]); err != nil {
		return err
	}
	if err := e.writeUint32(Version); err != nil {
		return err
	}
	return e.writeUint32(uint32(len(idx.Entries)))
}

func (e *Encoder) writeUint32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := e.w.Write(b[:])
	return err
}

func (e *Encoder) writeUint16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := e.w.Write(b[:])
	return err
}

func (e *Encoder) writeEntry(entry *Entry) error {
	var csec, cnsec, msec, mnsec uint32
	if !entry.CreatedAt.IsZero() {
		csec, cnsec = uint32(entry.CreatedAt.Unix()), uint32(entry.CreatedAt.Nanosecond())
	}
	if !entry.ModifiedAt.IsZero() {
		msec, mnsec = uint32(entry.ModifiedAt.Unix()), uint32(entry.ModifiedAt.Nanosecond())
	}

	for _, v := range []uint32{
		csec, cnsec, msec, mnsec,
		entry.Dev, entry.Inode, uint32(entry.Mode), entry.UID, entry.GID, entry.Size,
	} {
		if err := e.writeUint32(v); err != nil {
			return err
		}
	}

	if _, err := e.w.Write(entry.Hash[:]); err != nil {
		return err
	}

	nameLen := len(entry.Name)
	flagLen := nameLen
	if flagLen > nameMask {
		flagLen = nameMask
	}
	flags := uint16(entry.Stage&0x3)<<12 | uint16(flagLen)
	if err := e.writeUint16(flags); err != nil {
		return err
	}

	if _, err := io.WriteString(e.w, entry.Name); err != nil {
		return err
	}

	read := entryHeaderLength + nameLen + 1
	padLen := (8 - read%8) % 8
	if _, err := e.w.Write(make([]byte, 1+padLen)); err != nil {
		return err
	}

	return nil
}

func (e *Encoder) writeChecksum() error {
	sum := e.sum.Sum(nil)
	_, err := e.out.Write(sum)
	return err
}
