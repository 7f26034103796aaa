package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxArrayElements: 10000,
		MaxMapPairs:      10000,
		MaxNestedLevels:  16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder: %v", err))
	}
}

// MarshalCBOR encodes v canonically, so equal values always produce equal bytes.
func MarshalCBOR(v interface{}) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, &CodecError{Operation: "marshal", Err: err}
	}
	return b, nil
}

// UnmarshalCBOR decodes data with duplicate map keys and indefinite lengths rejected.
func UnmarshalCBOR(data []byte, v interface{}) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return &CodecError{Operation: "unmarshal", Err: err}
	}
	return nil
}

// CodecError wraps payload encoding failures.
type CodecError struct {
	Operation string
	Err       error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("cbor %s: %v", e.Operation, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}
