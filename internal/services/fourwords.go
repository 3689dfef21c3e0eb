package services

import "math/rand"

// fourWords is the fixed pool of verification words used as the depositor
// name of a one-won probe. The word doubles as the shared secret relayed to
// the account owner.
var fourWords = []string{
	"MAPLE", "TIGER", "RIVER", "CLOUD", "STONE",
	"OCEAN", "CEDAR", "FLAME", "NORTH", "PEARL",
	"RAVEN", "SOLAR", "AMBER", "BIRCH", "CORAL",
	"DELTA", "EMBER", "FROST", "GROVE", "HAZEL",
}

// ChooseWord picks a random verification word.
func ChooseWord() string {
	return fourWords[rand.Intn(len(fourWords))]
}
