package rtctoken

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"
)

func uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func packUint16(w *bytes.Buffer, v uint16) {
	_ = binary.Write(w, binary.LittleEndian, v)
}

func packUint32(w *bytes.Buffer, v uint32) {
	_ = binary.Write(w, binary.LittleEndian, v)
}

func packString(w *bytes.Buffer, s string) {
	packUint16(w, uint16(len(s)))
	w.WriteString(s)
}

func packMapUint32(w *bytes.Buffer, m map[uint16]uint32) {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	packUint16(w, uint16(len(keys)))
	for _, k := range keys {
		packUint16(w, uint16(k))
		packUint32(w, m[uint16(k)])
	}
}

func unpackString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func unpackMapUint32(r *bytes.Reader) (map[uint16]uint32, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	m := make(map[uint16]uint32, n)
	for i := 0; i < int(n); i++ {
		var k uint16
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}
