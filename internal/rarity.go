package internal

const (
	// descriptionRarityThreshold is the maximum rate a type description is seen to be considered rare.
	descriptionRarityThreshold = 0.01
	// operatorRarityThreshold is the maximum rate an aircraft operator is seen to be considered rare.
	operatorRarityThreshold = 0.01
	// categoryRarityThreshold is the maximum rate a track type is seen to be considered rare.
	categoryRarityThreshold = 0.005
)

type RarityFlag int

const (
	NoRarity                        RarityFlag = 0b000
	RareDescription                 RarityFlag = 0b001
	RareOperator                    RarityFlag = 0b010
	RareCategory                    RarityFlag = 0b100
	RareDescriptionAndOperator      RarityFlag = 0b011
	RareDescriptionAndCategory      RarityFlag = 0b101
	RareOperatorAndCategory         RarityFlag = 0b110
	RareDescriptionOperatorCategory RarityFlag = 0b111
)

// Has reports whether all bits of other are set.
func (f RarityFlag) Has(other RarityFlag) bool {
	return other != NoRarity && f&other == other
}

func (f RarityFlag) String() string {
	switch f {
	case NoRarity:
		return "none"
	case RareDescription:
		return "rare type"
	case RareOperator:
		return "rare operator"
	case RareCategory:
		return "rare category"
	case RareDescriptionAndOperator:
		return "rare type & operator"
	case RareDescriptionAndCategory:
		return "rare type & category"
	case RareOperatorAndCategory:
		return "rare operator & category"
	case RareDescriptionOperatorCategory:
		return "TRIFECTA"
	}
	return "unknown"
}
