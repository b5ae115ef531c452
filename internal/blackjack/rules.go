package blackjack

// DoubleRestriction limits which two-card hands may double down.
type DoubleRestriction string

const (
	DoubleAny        DoubleRestriction = "any"
	DoubleHard9to11  DoubleRestriction = "hard9to11"
	DoubleHard10or11 DoubleRestriction = "hard10or11"
)

func ValidDoubleRestriction(r DoubleRestriction) bool {
	switch r {
	case DoubleAny, DoubleHard9to11, DoubleHard10or11:
		return true
	}
	return false
}

// Rules is the table configuration consulted for action legality and the
// dealer's forced play.
type Rules struct {
	DealerHitsSoft17 bool
	DealerPeeks      bool
	Double           DoubleRestriction
	MaxSplits        uint8
	SurrenderAllowed bool
}

func DefaultRules() Rules {
	return Rules{
		DealerHitsSoft17: false,
		DealerPeeks:      true,
		Double:           DoubleAny,
		MaxSplits:        3,
		SurrenderAllowed: true,
	}
}

// CanDouble checks the table's double-down restriction against a two-card
// hand.
func CanDouble(cards []uint8, r Rules) bool {
	if len(cards) != 2 {
		return false
	}
	total, soft := HandValue(cards)
	switch r.Double {
	case DoubleHard9to11:
		return !soft && total >= 9 && total <= 11
	case DoubleHard10or11:
		return !soft && total >= 10 && total <= 11
	default:
		return true
	}
}

// DealerMustHit is the dealer's forced decision: hit below 17, and on soft
// 17 when the table says so.
func DealerMustHit(cards []uint8, r Rules) bool {
	total, soft := HandValue(cards)
	if total < 17 {
		return true
	}
	if total == 17 && soft && r.DealerHitsSoft17 {
		return true
	}
	return false
}

// DealerShouldPeek reports whether the upcard triggers a hole-card check:
// an ace or any ten-valued card.
func DealerShouldPeek(upcard uint8, r Rules) bool {
	if !r.DealerPeeks {
		return false
	}
	return Rank(upcard) == 0 || cardValue(upcard) == 10
}
