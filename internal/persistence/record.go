package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

var (
	magic      = [4]byte{'U', 'K', 'V', '1'}
	ErrCorrupt = errors.New("snapshot record corrupt")
)

// maxFieldLen bounds key and value lengths read from disk so a corrupt
// header cannot trigger a huge allocation.
const maxFieldLen = 64 << 20

type Record struct {
	Key   string
	Value []byte
}

func Encode(rec Record) ([]byte, error) {
	keyBytes := []byte(rec.Key)
	buf := bytes.NewBuffer(nil)
	if _, err := buf.Write(magic[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(keyBytes))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(rec.Value))); err != nil {
		return nil, err
	}
	if _, err := buf.Write(keyBytes); err != nil {
		return nil, err
	}
	if _, err := buf.Write(rec.Value); err != nil {
		return nil, err
	}
	crc := crc32.ChecksumIEEE(buf.Bytes())
	if err := binary.Write(buf, binary.LittleEndian, crc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeFrom reads one record. It returns io.EOF only when r is exhausted
// exactly at a record boundary.
func DecodeFrom(r io.Reader) (Record, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, ErrCorrupt
		}
		return Record{}, err
	}
	if header != magic {
		return Record{}, ErrCorrupt
	}
	var keyLen, valLen uint32
	if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
		return Record{}, truncated(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &valLen); err != nil {
		return Record{}, truncated(err)
	}
	if keyLen > maxFieldLen || valLen > maxFieldLen {
		return Record{}, ErrCorrupt
	}
	keyBytes := make([]byte, keyLen)
	if _, err := io.ReadFull(r, keyBytes); err != nil {
		return Record{}, truncated(err)
	}
	valBytes := make([]byte, valLen)
	if _, err := io.ReadFull(r, valBytes); err != nil {
		return Record{}, truncated(err)
	}
	var crc uint32
	if err := binary.Read(r, binary.LittleEndian, &crc); err != nil {
		return Record{}, truncated(err)
	}

	body := bytes.NewBuffer(nil)
	body.Write(header[:])
	binary.Write(body, binary.LittleEndian, keyLen)
	binary.Write(body, binary.LittleEndian, valLen)
	body.Write(keyBytes)
	body.Write(valBytes)
	if crc32.ChecksumIEEE(body.Bytes()) != crc {
		return Record{}, ErrCorrupt
	}

	return Record{
		Key:   string(keyBytes),
		Value: valBytes,
	}, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrCorrupt
	}
	return err
}
