// Package wallet derives accounts from a master secret and holds the
// in-memory wallet: the account list, the wallet config key and the
// encrypted secret blob.
//
// The master secret is a BIP39 phrase encoding 256 bits of entropy.
package wallet

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/cosmos/go-bip39"

	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// SecretKeyBits is the entropy size of a new master secret.
const SecretKeyBits = 256

// MaxTypoDistance is the maximum Levenshtein distance to consider a suggestion.
const MaxTypoDistance = 2

var (
	// ErrInvalidEntropySize indicates an entropy size BIP39 does not support here.
	ErrInvalidEntropySize = sigilerr.WithSuggestion(sigilerr.ErrInvalidInput, "entropy must be 128 or 256 bits")

	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// GenerateSecretKey creates a new master secret phrase from bits of entropy
// (128 for 12 words, 256 for 24 words). Entropy comes from sigilcrypto.Reader.
func GenerateSecretKey(bits int) (*sigilcrypto.SecureBytes, error) {
	if bits != 128 && bits != 256 {
		return nil, ErrInvalidEntropySize
	}

	entropy, err := sigilcrypto.RandomBytes(bits / 8)
	if err != nil {
		return nil, err
	}
	defer sigilcrypto.Zero(entropy)

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return sigilcrypto.SecureBytesFromSlice([]byte(phrase))
}

// ValidateMnemonic checks word count, word validity and checksum.
// Unknown words produce a suggestion on the returned error.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonicInput(mnemonic)
	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return sigilerr.WithDetails(sigilerr.ErrInvalidMnemonic, map[string]string{
			"words": strconv.Itoa(len(words)),
		})
	}

	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		if typos := DetectTypos(normalized); len(typos) > 0 {
			return sigilerr.WithSuggestion(sigilerr.ErrInvalidMnemonic, FormatTypoSuggestions(typos))
		}
		return sigilerr.ErrInvalidMnemonic
	}
	return nil
}

// NormalizeMnemonicInput lowercases the input, strips list numbering and
// bullets, turns commas into spaces and collapses whitespace.
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// seedFromSecret validates the phrase and returns its 64-byte BIP39 seed.
// The caller zeroes the seed.
func seedFromSecret(secret []byte) ([]byte, error) {
	normalized := NormalizeMnemonicInput(string(secret))
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return nil, sigilerr.ErrInvalidMnemonic
	}
	return bip39.NewSeed(normalized, ""), nil
}

// IsValidWord checks if a word is in the BIP39 word list.
func IsValidWord(word string) bool {
	word = strings.ToLower(word)
	for _, w := range bip39.WordList {
		if w == word {
			return true
		}
	}
	return false
}

// TypoInfo describes an unknown word and its closest replacement.
type TypoInfo struct {
	Index      int
	Word       string
	Suggestion string
	Distance   int
}

// SuggestWord returns the closest BIP39 word, or "" when nothing is within
// MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	minDist := math.MaxInt
	var suggestion string

	for _, word := range bip39.WordList {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos lists the words of mnemonic that are not in the word list.
func DetectTypos(mnemonic string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonicInput(mnemonic)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line with 1-based positions.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, typo := range typos {
		line := "word " + strconv.Itoa(typo.Index+1) + ": '" + typo.Word + "'"
		if typo.Suggestion != "" {
			line += " - did you mean '" + typo.Suggestion + "'?"
		} else {
			line += " is not a valid word"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
