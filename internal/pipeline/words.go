package pipeline

import "fmt"

// The extractor speaks in words; the store keeps small integers. The two
// lists below are the full vocabulary, and the word/number mappings in each
// direction are exact inverses of one another.

// moodWords maps mood -2..2 to its word, index 0 == mood -2.
var moodWords = [5]string{"awful", "low", "neutral", "good", "great"}

// energyWords maps energy 1..5 to its word, index 0 == energy 1.
var energyWords = [5]string{"drained", "tired", "moderate", "lively", "energized"}

const (
	MoodMin = -2
	MoodMax = 2

	EnergyMin = 1
	EnergyMax = 5

	// Neutral defaults used by the extraction fallback stub.
	MoodNeutral    = 0
	EnergyModerate = 3
)

// MoodToWord renders a mood value (-2..2) as its word.
func MoodToWord(n int) (string, error) {
	if n < MoodMin || n > MoodMax {
		return "", fmt.Errorf("mood %d out of range [%d, %d]", n, MoodMin, MoodMax)
	}
	return moodWords[n-MoodMin], nil
}

// MoodFromWord parses a mood word back to its value.
func MoodFromWord(word string) (int, error) {
	for i, w := range moodWords {
		if w == word {
			return i + MoodMin, nil
		}
	}
	return 0, fmt.Errorf("unknown mood word %q", word)
}

// EnergyToWord renders an energy value (1..5) as its word.
func EnergyToWord(n int) (string, error) {
	if n < EnergyMin || n > EnergyMax {
		return "", fmt.Errorf("energy %d out of range [%d, %d]", n, EnergyMin, EnergyMax)
	}
	return energyWords[n-EnergyMin], nil
}

// EnergyFromWord parses an energy word back to its value.
func EnergyFromWord(word string) (int, error) {
	for i, w := range energyWords {
		if w == word {
			return i + EnergyMin, nil
		}
	}
	return 0, fmt.Errorf("unknown energy word %q", word)
}
