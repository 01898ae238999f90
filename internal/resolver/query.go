package resolver

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/avetrov/namevault/internal/model"
)

// Query is the decoded form of the opaque query payload the resolution
// protocol forwards. The routing layer never interprets it; only leaf
// resolvers decode it.
type Query struct {
	Type model.RecordType
	Key  string // empty for addr/contenthash lookups
}

const queryHeaderLen = 3 // 1 byte type + 2 byte key length

var (
	ErrShortQuery   = errors.New("resolver: short query payload")
	ErrQueryType    = errors.New("resolver: unknown query record type")
	ErrQueryKeyLong = errors.New("resolver: query key too long")
)

// EncodeQuery serializes a query: [type u8][keylen u16 BE][key bytes].
func EncodeQuery(q Query) ([]byte, error) {
	if !q.Type.Valid() {
		return nil, ErrQueryType
	}
	if len(q.Key) > 0xFFFF {
		return nil, ErrQueryKeyLong
	}
	buf := make([]byte, queryHeaderLen+len(q.Key))
	buf[0] = byte(q.Type)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(q.Key)))
	copy(buf[queryHeaderLen:], q.Key)
	return buf, nil
}

// DecodeQuery parses a query payload.
func DecodeQuery(payload []byte) (Query, error) {
	if len(payload) < queryHeaderLen {
		return Query{}, ErrShortQuery
	}
	typ := model.RecordType(payload[0])
	if !typ.Valid() {
		return Query{}, fmt.Errorf("%w: %d", ErrQueryType, payload[0])
	}
	n := int(binary.BigEndian.Uint16(payload[1:3]))
	if len(payload) < queryHeaderLen+n {
		return Query{}, ErrShortQuery
	}
	return Query{Type: typ, Key: string(payload[queryHeaderLen : queryHeaderLen+n])}, nil
}
