package ceremony

import (
	"fmt"

	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

// encodeReport serializes what this party received in a contribution stage, its own payload included.
func encodeReport(received map[PartyIndex][]byte) ([]byte, error) {
	r := make(map[uint32][]byte, len(received))
	for idx, v := range received {
		r[uint32(idx)] = v
	}
	return wire.MarshalCBOR(r)
}

func decodeReport(data []byte, n int) (map[PartyIndex][]byte, error) {
	var r map[uint32][]byte
	if err := wire.UnmarshalCBOR(data, &r); err != nil {
		return nil, err
	}
	out := make(map[PartyIndex][]byte, len(r))
	for idx, v := range r {
		if int(idx) >= n {
			return nil, fmt.Errorf("report names party %d of %d", idx, n)
		}
		if len(v) == 0 {
			continue
		}
		out[PartyIndex(idx)] = v
	}
	return out, nil
}

// verifyBroadcasts runs one majority vote per subject over the reports of all n parties.
// A missing report, or a report without the subject, is a vote for "no value".
// A subject is agreed only when one concrete value has strictly more than n/2 votes,
// otherwise it is returned in the non-agreeing list (sorted ascending).
func verifyBroadcasts(n int, reports map[PartyIndex]map[PartyIndex][]byte) (map[PartyIndex][]byte, []PartyIndex) {
	agreed := make(map[PartyIndex][]byte, n)
	var missing []PartyIndex
	for s := 0; s < n; s++ {
		subject := PartyIndex(s)
		votes := make(map[string]int, 1)
		for r := 0; r < n; r++ {
			rep, ok := reports[PartyIndex(r)]
			if !ok {
				continue
			}
			if v, ok := rep[subject]; ok {
				votes[string(v)]++
			}
		}
		found := false
		for value, count := range votes {
			if 2*count > n {
				agreed[subject] = []byte(value)
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, subject)
		}
	}
	return agreed, missing
}
