package verification

// Fixed verdict loci.
const (
	LocusInsufficientImages = "insufficient images"
	LocusAllMatched         = "All Matched"
)

func insufficientVerdict(registrantID string) RegistrationVerdict {
	return RegistrationVerdict{
		RegistrantID:   registrantID,
		AllVerified:    false,
		FailureLocus:   LocusInsufficientImages,
		OutlierIndices: []int{},
		Strategy:       StrategyNone,
	}
}

// aggregate turns the authoritative pass into the final verdict.
func aggregate(registrantID string, pass passResult) RegistrationVerdict {
	outliers := append([]int{}, pass.outliers...)
	v := RegistrationVerdict{
		RegistrantID:   registrantID,
		AllVerified:    pass.allVerified,
		OutlierIndices: outliers,
		Strategy:       pass.strategy,
	}

	switch {
	case pass.allVerified && pass.strategy == StrategyHistEq:
		v.FailureLocus = LocusAllMatched + " (hist_eq)"
	case pass.allVerified:
		v.FailureLocus = LocusAllMatched
	case pass.strategy == StrategyHistEq:
		v.FailureLocus = pass.failureLocus + " [hist_eq]"
	default:
		v.FailureLocus = pass.failureLocus
	}
	return v
}
