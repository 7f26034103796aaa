package wire

import (
	ssz "github.com/ferranbt/fastssz"
)

const (
	maxTransportData    = 8388608
	maxTransportVersion = 128
	maxSignature        = 512
	maxErr              = 512
)

// MarshalSSZ ssz marshals the Transport object
func (t *Transport) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(t)
}

// MarshalSSZTo ssz marshals the Transport object to a target array
func (t *Transport) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf
	offset := int(32)

	// Field (0) 'Type'
	dst = ssz.MarshalUint64(dst, uint64(t.Type))

	// Field (1) 'CeremonyID'
	dst = ssz.MarshalUint64(dst, t.CeremonyID)

	// Field (2) 'Stage'
	dst = ssz.MarshalUint64(dst, t.Stage)

	// Offset (3) 'Data'
	dst = ssz.WriteOffset(dst, offset)
	offset += len(t.Data)

	// Offset (4) 'Version'
	dst = ssz.WriteOffset(dst, offset)

	// Field (3) 'Data'
	if len(t.Data) > maxTransportData {
		err = ssz.ErrBytesLength
		return
	}
	dst = append(dst, t.Data...)

	// Field (4) 'Version'
	if len(t.Version) > maxTransportVersion {
		err = ssz.ErrBytesLength
		return
	}
	dst = append(dst, t.Version...)

	return
}

// UnmarshalSSZ ssz unmarshals the Transport object
func (t *Transport) UnmarshalSSZ(buf []byte) error {
	size := uint64(len(buf))
	if size < 32 {
		return ssz.ErrSize
	}

	tail := buf
	var o3, o4 uint64

	// Field (0) 'Type'
	t.Type = TransportType(ssz.UnmarshallUint64(buf[0:8]))

	// Field (1) 'CeremonyID'
	t.CeremonyID = ssz.UnmarshallUint64(buf[8:16])

	// Field (2) 'Stage'
	t.Stage = ssz.UnmarshallUint64(buf[16:24])

	// Offset (3) 'Data'
	if o3 = ssz.ReadOffset(buf[24:28]); o3 > size || o3 != 32 {
		return ssz.ErrOffset
	}

	// Offset (4) 'Version'
	if o4 = ssz.ReadOffset(buf[28:32]); o4 > size || o3 > o4 {
		return ssz.ErrOffset
	}

	// Field (3) 'Data'
	{
		buf = tail[o3:o4]
		if len(buf) > maxTransportData {
			return ssz.ErrBytesLength
		}
		t.Data = append(t.Data[:0], buf...)
	}

	// Field (4) 'Version'
	{
		buf = tail[o4:]
		if len(buf) > maxTransportVersion {
			return ssz.ErrBytesLength
		}
		t.Version = append(t.Version[:0], buf...)
	}
	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the Transport object
func (t *Transport) SizeSSZ() (size int) {
	size = 32
	size += len(t.Data)
	size += len(t.Version)
	return
}

// MarshalSSZ ssz marshals the SignedTransport object
func (s *SignedTransport) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(s)
}

// MarshalSSZTo ssz marshals the SignedTransport object to a target array
func (s *SignedTransport) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf
	offset := int(16)

	// Offset (0) 'Message'
	dst = ssz.WriteOffset(dst, offset)
	if s.Message == nil {
		s.Message = new(Transport)
	}
	offset += s.Message.SizeSSZ()

	// Field (1) 'Signer'
	dst = ssz.MarshalUint64(dst, s.Signer)

	// Offset (2) 'Signature'
	dst = ssz.WriteOffset(dst, offset)

	// Field (0) 'Message'
	if dst, err = s.Message.MarshalSSZTo(dst); err != nil {
		return
	}

	// Field (2) 'Signature'
	if len(s.Signature) > maxSignature {
		err = ssz.ErrBytesLength
		return
	}
	dst = append(dst, s.Signature...)

	return
}

// UnmarshalSSZ ssz unmarshals the SignedTransport object
func (s *SignedTransport) UnmarshalSSZ(buf []byte) error {
	size := uint64(len(buf))
	if size < 16 {
		return ssz.ErrSize
	}

	tail := buf
	var o0, o2 uint64

	// Offset (0) 'Message'
	if o0 = ssz.ReadOffset(buf[0:4]); o0 > size || o0 != 16 {
		return ssz.ErrOffset
	}

	// Field (1) 'Signer'
	s.Signer = ssz.UnmarshallUint64(buf[4:12])

	// Offset (2) 'Signature'
	if o2 = ssz.ReadOffset(buf[12:16]); o2 > size || o0 > o2 {
		return ssz.ErrOffset
	}

	// Field (0) 'Message'
	{
		buf = tail[o0:o2]
		if s.Message == nil {
			s.Message = new(Transport)
		}
		if err := s.Message.UnmarshalSSZ(buf); err != nil {
			return err
		}
	}

	// Field (2) 'Signature'
	{
		buf = tail[o2:]
		if len(buf) > maxSignature {
			return ssz.ErrBytesLength
		}
		s.Signature = append(s.Signature[:0], buf...)
	}
	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the SignedTransport object
func (s *SignedTransport) SizeSSZ() (size int) {
	size = 16
	if s.Message == nil {
		s.Message = new(Transport)
	}
	size += s.Message.SizeSSZ()
	size += len(s.Signature)
	return
}

// MarshalSSZ ssz marshals the ErrSSZ object
func (e *ErrSSZ) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(e)
}

// MarshalSSZTo ssz marshals the ErrSSZ object to a target array
func (e *ErrSSZ) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf

	// Offset (0) 'Error'
	dst = ssz.WriteOffset(dst, 4)

	// Field (0) 'Error'
	if len(e.Error) > maxErr {
		err = ssz.ErrBytesLength
		return
	}
	dst = append(dst, e.Error...)

	return
}

// UnmarshalSSZ ssz unmarshals the ErrSSZ object
func (e *ErrSSZ) UnmarshalSSZ(buf []byte) error {
	size := uint64(len(buf))
	if size < 4 {
		return ssz.ErrSize
	}

	// Offset (0) 'Error'
	if o0 := ssz.ReadOffset(buf[0:4]); o0 != 4 {
		return ssz.ErrOffset
	}

	// Field (0) 'Error'
	if len(buf[4:]) > maxErr {
		return ssz.ErrBytesLength
	}
	e.Error = append(e.Error[:0], buf[4:]...)
	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the ErrSSZ object
func (e *ErrSSZ) SizeSSZ() (size int) {
	return 4 + len(e.Error)
}
