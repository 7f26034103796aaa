package frost

// Stage payloads. All of them travel CBOR encoded.

type commitmentsMsg struct {
	Commitments [][]byte `cbor:"1,keyasint"`
	// Schnorr proof of knowledge of the constant term
	R  []byte `cbor:"2,keyasint"`
	Mu []byte `cbor:"3,keyasint"`
}

type shareMsg struct {
	Share []byte `cbor:"1,keyasint"`
}

type complaintsMsg struct {
	Accused []uint32 `cbor:"1,keyasint"`
}

// keyShare is the persisted secret of one party after a keygen.
type keyShare struct {
	Index  uint32 `cbor:"1,keyasint"`
	Secret []byte `cbor:"2,keyasint"`
	// Commitments of the aggregated polynomial, used to derive verification shares.
	Commitments [][]byte `cbor:"3,keyasint"`
}

type nonceMsg struct {
	D []byte `cbor:"1,keyasint"`
	E []byte `cbor:"2,keyasint"`
}

type sigShareMsg struct {
	Z []byte `cbor:"1,keyasint"`
}
