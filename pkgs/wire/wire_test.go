package wire

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssvlabs/ssv-multisig/pkgs/crypto"
)

func TestSignedTransportSSZ(t *testing.T) {
	st := &SignedTransport{
		Message: &Transport{
			Type:       SigningMessageType,
			CeremonyID: 42,
			Stage:      3,
			Data:       []byte("stage payload"),
			Version:    []byte("v1.0.0"),
		},
		Signer:    7,
		Signature: []byte{1, 2, 3},
	}
	b, err := st.MarshalSSZ()
	require.NoError(t, err)
	require.Len(t, b, st.SizeSSZ())

	decoded := &SignedTransport{}
	require.NoError(t, decoded.UnmarshalSSZ(b))
	require.Equal(t, st, decoded)
	require.Equal(t, "SigningMessageType", decoded.Message.Type.String())

	// truncated input
	require.Error(t, decoded.UnmarshalSSZ(b[:10]))
	require.Error(t, (&Transport{}).UnmarshalSSZ(b[16:30]))
}

func TestTransportLimits(t *testing.T) {
	_, err := (&Transport{Version: make([]byte, 129)}).MarshalSSZ()
	require.Error(t, err)
	_, err = (&SignedTransport{Message: &Transport{}, Signature: make([]byte, 513)}).MarshalSSZ()
	require.Error(t, err)

	// offsets pointing past the buffer
	b, err := (&Transport{Data: []byte{1}}).MarshalSSZ()
	require.NoError(t, err)
	b[28] = 0xff
	require.Error(t, (&Transport{}).UnmarshalSSZ(b))
}

func TestErrSSZ(t *testing.T) {
	raw := MakeErr(errors.New("boom"))
	err, parseErr := GetErr(raw)
	require.NoError(t, parseErr)
	require.EqualError(t, err, "boom")

	msg, parseErr := ParseAsError(MakeErr(errors.New(strings.Repeat("x", 600))))
	require.NoError(t, parseErr)
	require.Len(t, msg, 512)

	_, parseErr = GetErr([]byte{1})
	require.Error(t, parseErr)
}

func TestPeersJSON(t *testing.T) {
	_, pk, err := crypto.GenerateKeys()
	require.NoError(t, err)
	peers := Peers{{Addr: "http://127.0.0.1:3030/", ID: 1, PubKey: pk}}
	b, err := json.Marshal(peers)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "peers.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	loaded, err := LoadPeers(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "http://127.0.0.1:3030", loaded[0].Addr)
	require.True(t, pk.Equal(loaded.ByID(1).PubKey))
	require.Nil(t, loaded.ByID(2))

	dup := append(peers, peers[0])
	b, err = json.Marshal(dup)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	_, err = LoadPeers(path)
	require.ErrorContains(t, err, "duplicate peer id")

	bad := &Peer{}
	require.Error(t, json.Unmarshal([]byte(`{"ip":"not a url","id":1,"public_key":""}`), bad))
	require.Error(t, json.Unmarshal([]byte(`{"ip":"http://a","id":0,"public_key":""}`), bad))
}

func TestInstructionValidation(t *testing.T) {
	require.Error(t, (&KeygenInstruction{CeremonyID: 1}).Validate())
	require.NoError(t, (&KeygenInstruction{CeremonyID: 1, Participants: []uint64{1}}).Validate())

	var sign SignInstruction
	require.NoError(t, json.Unmarshal([]byte(`{"ceremony_id":2,"key_id":"0xab","message":"0x0102","signers":[1,2]}`), &sign))
	require.Equal(t, []byte{1, 2}, []byte(sign.Message))
	require.NoError(t, sign.Validate())
	require.Error(t, (&SignInstruction{KeyID: "ab", Signers: []uint64{1}}).Validate())
}
