package keystore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	groupKey := []byte("group key")
	id := KeyIDFromGroupKey(groupKey)

	_, err := s.Get(id)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Put(&Key{ID: id, GroupKey: groupKey, Participants: []uint64{1, 2, 3}, Threshold: 2}))
	k, err := s.Get(id)
	require.NoError(t, err)
	require.True(t, k.HasParticipant(2))
	require.False(t, k.HasParticipant(4))
}

func TestFileStoreReload(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFileStore(dir)
	require.NoError(t, err)

	groupKey := []byte{1, 2, 3, 4}
	k := &Key{
		ID:           KeyIDFromGroupKey(groupKey),
		CeremonyID:   7,
		GroupKey:     groupKey,
		Participants: []uint64{1, 2, 3, 4},
		Threshold:    3,
		Secret:       []byte("share"),
	}
	require.NoError(t, s.Put(k))

	reopened, err := OpenFileStore(dir)
	require.NoError(t, err)
	got, err := reopened.Get(k.ID)
	require.NoError(t, err)
	require.Equal(t, k, got)

	keys, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, keys, 1)
}

func TestParseKeyID(t *testing.T) {
	id := KeyIDFromGroupKey([]byte("key"))
	parsed, err := ParseKeyID("0x" + id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParseKeyID("abcd")
	require.Error(t, err)
}
