package ceremony

import "fmt"

// StageKind tells how a stage collects its data.
type StageKind uint8

const (
	// ContributionStage collects one opaque payload from every participant.
	ContributionStage StageKind = iota + 1
	// VerificationStage collects every participant's report of the preceding contribution stage.
	VerificationStage
)

func (k StageKind) String() string {
	switch k {
	case ContributionStage:
		return "contribution"
	case VerificationStage:
		return "verification"
	default:
		return "no type impl"
	}
}

// Stage is one element of a ceremony's fixed stage sequence.
type Stage struct {
	Name string
	Kind StageKind
	// Private contributions carry a distinct payload for every recipient and are never broadcast-verified.
	Private bool
}

var SigningStages = []Stage{
	{Name: "Comm1", Kind: ContributionStage},
	{Name: "VerifyComm2", Kind: VerificationStage},
	{Name: "LocalSig3", Kind: ContributionStage},
	{Name: "VerifyLocalSig4", Kind: VerificationStage},
}

var KeygenStages = []Stage{
	{Name: "Comm1", Kind: ContributionStage},
	{Name: "VerifyComm2", Kind: VerificationStage},
	{Name: "SecretShare3", Kind: ContributionStage, Private: true},
	{Name: "Complaints4", Kind: ContributionStage},
	{Name: "VerifyComplaints5", Kind: VerificationStage},
}

// StagesFor returns the stage sequence of a ceremony kind.
func StagesFor(kind Kind) ([]Stage, error) {
	switch kind {
	case KeygenKind:
		return KeygenStages, nil
	case SigningKind:
		return SigningStages, nil
	default:
		return nil, fmt.Errorf("%d: %w", kind, ErrUnsupportedKind)
	}
}

// ValidateStages checks that every verification stage follows a broadcast contribution stage
// and that the sequence starts with a contribution.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 || stages[0].Kind != ContributionStage {
		return ErrInvalidStageConfig
	}
	for i, st := range stages {
		if st.Kind != VerificationStage {
			continue
		}
		prev := stages[i-1]
		if prev.Kind != ContributionStage || prev.Private {
			return fmt.Errorf("stage %d (%s): %w", i+1, st.Name, ErrInvalidStageConfig)
		}
	}
	return nil
}

// reportsNext tells whether closing stage number n (1-based) only requires broadcasting a verification report.
func reportsNext(stages []Stage, n int) bool {
	return n < len(stages) && stages[n-1].Kind == ContributionStage && stages[n].Kind == VerificationStage
}
