package serializer

import "github.com/vmihailenco/msgpack/v5"

type msgPackCodec struct {
}

func (c *msgPackCodec) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *msgPackCodec) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
