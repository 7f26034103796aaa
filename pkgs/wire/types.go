package wire

type SSZMarshaller interface {
	MarshalSSZ() ([]byte, error)
	UnmarshalSSZ(buf []byte) error
}

type ErrSSZ struct {
	Error []byte `ssz-max:"512"`
}

type TransportType uint64

const (
	KeygenMessageType TransportType = iota + 1
	SigningMessageType
)

func (t TransportType) String() string {
	switch t {
	case KeygenMessageType:
		return "KeygenMessageType"
	case SigningMessageType:
		return "SigningMessageType"
	default:
		return "no type impl"
	}
}

// Transport carries the stage data of one ceremony between two nodes
type Transport struct {
	Type       TransportType
	CeremonyID uint64
	Stage      uint64
	Data       []byte `ssz-max:"8388608"` // 2^23
	Version    []byte `ssz-max:"128"`
}

type SignedTransport struct {
	Message *Transport
	// Signer is the operator ID of the sending node
	Signer    uint64
	Signature []byte `ssz-max:"512"`
}
