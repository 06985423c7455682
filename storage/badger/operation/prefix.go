package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/riffcc/pact/model/pact"
)

const (
	// key prefixes for the stored record families
	codeDecision     = 10
	codeEquivocation = 20
)

func makePrefix(code byte, keys ...interface{}) []byte {
	prefix := make([]byte, 1)
	prefix[0] = code
	for _, key := range keys {
		prefix = append(prefix, keyPartToBinary(key)...)
	}
	return prefix
}

func keyPartToBinary(v interface{}) []byte {
	switch i := v.(type) {
	case uint64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, i)
		return b
	case uint16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, i)
		return b
	case pact.Identifier:
		return i[:]
	default:
		panic(fmt.Sprintf("unsupported type to convert (%T)", v))
	}
}
