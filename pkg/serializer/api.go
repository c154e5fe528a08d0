// Package serializer provides the codecs used for state snapshots.
package serializer

// ICodec marshals values to and from a byte representation.
type ICodec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

var (
	Json    ICodec = new(jsonCodec)
	MsgPack ICodec = new(msgPackCodec)
)
