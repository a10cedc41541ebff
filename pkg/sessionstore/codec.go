package sessionstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strconv"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/yndnr/gridsession-go/pkg/crypto/adaptive"
)

// Codec turns stored values into bytes for the grid and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec encodes values as JSON.
//
// Schema-less numbers decoded into a *Session, *map[string]any, *[]any or
// *any come back as int64 when integral and float64 otherwise, so integers
// beyond 2^53 keep their precision. Other targets decode with encoding/json
// defaults.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error {
	switch t := v.(type) {
	case *Session:
		if err := decodeNumbers(data, t); err != nil {
			return err
		}
		normalizeMap(t.Data)
	case *map[string]any:
		if err := decodeNumbers(data, t); err != nil {
			return err
		}
		normalizeMap(*t)
	case *[]any:
		if err := decodeNumbers(data, t); err != nil {
			return err
		}
		normalizeSlice(*t)
	case *any:
		if err := decodeNumbers(data, t); err != nil {
			return err
		}
		*t = normalizeNumber(*t)
	default:
		return json.Unmarshal(data, v)
	}
	return nil
}

var errTrailingData = errors.New("json: invalid data after top-level value")

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}

func normalizeMap(m map[string]any) {
	for k, v := range m {
		m[k] = normalizeNumber(v)
	}
}

func normalizeSlice(s []any) {
	for i, v := range s {
		s[i] = normalizeNumber(v)
	}
}

func normalizeNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(string(t), 10, 64); err == nil {
			return u
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	case map[string]any:
		normalizeMap(t)
	case []any:
		normalizeSlice(t)
	}
	return v
}

// MsgpackCodec encodes values as MessagePack. Struct fields honor `codec`
// tags and fall back to `json` tags.
type MsgpackCodec struct {
	h *codec.MsgpackHandle
}

// NewMsgpackCodec returns a MessagePack codec whose schema-less maps decode
// as map[string]any and whose schema-less integers decode as int64.
func NewMsgpackCodec() *MsgpackCodec {
	h := &codec.MsgpackHandle{WriteExt: true}
	h.MapType = reflect.TypeOf(map[string]any(nil))
	h.RawToString = true
	h.SignedInteger = true
	return &MsgpackCodec{h: h}
}

func (c *MsgpackCodec) Name() string { return "msgpack" }

func (c *MsgpackCodec) Marshal(v any) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, c.h).Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MsgpackCodec) Unmarshal(data []byte, v any) error {
	return codec.NewDecoderBytes(data, c.h).Decode(v)
}

// SealedCodec encrypts the output of another codec. The codec name is bound
// as additional data, so a value cannot be opened under a different inner
// encoding.
type SealedCodec struct {
	inner  Codec
	sealer *adaptive.Sealer
	aad    []byte
}

// NewSealedCodec wraps inner with sealer.
func NewSealedCodec(inner Codec, sealer *adaptive.Sealer) *SealedCodec {
	return &SealedCodec{inner: inner, sealer: sealer, aad: []byte("gridsession/" + inner.Name())}
}

func (c *SealedCodec) Name() string { return "sealed+" + c.inner.Name() }

func (c *SealedCodec) Marshal(v any) ([]byte, error) {
	plain, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.sealer.Seal(plain, c.aad)
}

func (c *SealedCodec) Unmarshal(data []byte, v any) error {
	plain, err := c.sealer.Open(data, c.aad)
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(plain, v)
}

// CodecByName returns a codec for a configured name: "json", "msgpack", or
// "" for the default.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return NewMsgpackCodec(), nil
	default:
		return nil, ErrInvalidConfig.WithDetails("unknown codec %q", name)
	}
}
