package ceremony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyBroadcasts(t *testing.T) {
	a, b := []byte("a"), []byte("b")
	tests := []struct {
		name    string
		n       int
		reports map[PartyIndex]map[PartyIndex][]byte
		agreed  map[PartyIndex][]byte
		missing []PartyIndex
	}{
		{
			name: "everyone agrees",
			n:    3,
			reports: map[PartyIndex]map[PartyIndex][]byte{
				0: {0: a, 1: b, 2: a},
				1: {0: a, 1: b, 2: a},
				2: {0: a, 1: b, 2: a},
			},
			agreed: map[PartyIndex][]byte{0: a, 1: b, 2: a},
		},
		{
			name: "one link missing is recovered",
			n:    3,
			reports: map[PartyIndex]map[PartyIndex][]byte{
				0: {0: a, 1: b, 2: a},
				1: {0: a, 1: b},
				2: {0: a, 1: b, 2: a},
			},
			agreed: map[PartyIndex][]byte{0: a, 1: b, 2: a},
		},
		{
			name: "missing report counts as no value",
			n:    3,
			reports: map[PartyIndex]map[PartyIndex][]byte{
				0: {0: a, 1: b, 2: a},
				2: {0: a, 2: a},
			},
			agreed:  map[PartyIndex][]byte{0: a, 2: a},
			missing: []PartyIndex{1},
		},
		{
			name: "party seen only by itself",
			n:    4,
			reports: map[PartyIndex]map[PartyIndex][]byte{
				0: {0: a, 1: a, 2: a},
				1: {0: a, 1: a, 2: a},
				2: {0: a, 1: a, 2: a},
				3: {0: a, 1: a, 2: a, 3: b},
			},
			agreed:  map[PartyIndex][]byte{0: a, 1: a, 2: a},
			missing: []PartyIndex{3},
		},
		{
			name: "inconsistent values have no majority",
			n:    4,
			reports: map[PartyIndex]map[PartyIndex][]byte{
				0: {0: a, 1: a},
				1: {0: a, 1: b},
				2: {0: a, 1: b},
				3: {0: a, 1: a},
			},
			agreed:  map[PartyIndex][]byte{0: a},
			missing: []PartyIndex{1, 2, 3},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			agreed, missing := verifyBroadcasts(test.n, test.reports)
			require.Equal(t, test.agreed, agreed)
			require.Equal(t, test.missing, missing)
		})
	}
}

func TestReportEncoding(t *testing.T) {
	received := map[PartyIndex][]byte{0: []byte("x"), 2: []byte("z")}
	b, err := encodeReport(received)
	require.NoError(t, err)
	again, err := encodeReport(map[PartyIndex][]byte{2: []byte("z"), 0: []byte("x")})
	require.NoError(t, err)
	require.Equal(t, b, again)

	decoded, err := decodeReport(b, 3)
	require.NoError(t, err)
	require.Equal(t, received, decoded)

	_, err = decodeReport(b, 2)
	require.Error(t, err)
	_, err = decodeReport([]byte{0xff}, 3)
	require.Error(t, err)
}

func TestValidateStages(t *testing.T) {
	require.NoError(t, ValidateStages(SigningStages))
	require.NoError(t, ValidateStages(KeygenStages))
	require.ErrorIs(t, ValidateStages(nil), ErrInvalidStageConfig)
	require.ErrorIs(t, ValidateStages([]Stage{
		{Name: "Shares", Kind: ContributionStage, Private: true},
		{Name: "VerifyShares", Kind: VerificationStage},
	}), ErrInvalidStageConfig)
}

func TestSuccessThreshold(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 4: 3, 5: 4, 7: 5, 10: 7, 150: 100} {
		require.Equal(t, want, SuccessThreshold(n), "n=%d", n)
	}
}
