// Package blackjack scores hands and validates table actions.
package blackjack

// Cards are deck indexes 0..51: rank = index % 13 (0 = ace, 9..12 = ten
// through king), suit = index / 13.

const (
	Blackjack = 21
	NumRanks  = 13
)

func Rank(card uint8) uint8 {
	return card % NumRanks
}

func Suit(card uint8) uint8 {
	return card / NumRanks
}

// cardValue returns the hard value of a card (ace counts 1 here; the soft
// upgrade happens in HandValue).
func cardValue(card uint8) int {
	r := Rank(card)
	switch {
	case r == 0:
		return 1
	case r >= 9:
		return 10
	default:
		return int(r) + 1
	}
}

// HandValue returns the best total and whether the hand is soft (an ace is
// counted as 11 without busting).
func HandValue(cards []uint8) (total int, soft bool) {
	aces := 0
	for _, c := range cards {
		total += cardValue(c)
		if Rank(c) == 0 {
			aces++
		}
	}
	if aces > 0 && total+10 <= Blackjack {
		return total + 10, true
	}
	return total, false
}

func IsBusted(cards []uint8) bool {
	total, _ := HandValue(cards)
	return total > Blackjack
}

// IsBlackjack reports a natural: exactly two cards totalling 21.
func IsBlackjack(cards []uint8) bool {
	if len(cards) != 2 {
		return false
	}
	total, _ := HandValue(cards)
	return total == Blackjack
}

// CanSplitPair reports whether the two-card hand is a splittable pair.
func CanSplitPair(cards []uint8) bool {
	return len(cards) == 2 && Rank(cards[0]) == Rank(cards[1])
}
