// Package words renders monetary amounts as French text for legal
// documents ("mille deux cent trente-quatre euros et cinquante
// centimes"). The conversion is pure and safe to call on every render.
//
// The grammar intentionally reproduces the outputs embedded in already
// issued documents: compounds are hyphen-joined without the French
// « et » rule, so 21 renders as "vingt-un", not "vingt-et-un". Do not
// correct this without product-owner sign-off; it would change golden
// outputs.
package words

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"facturo/internal/core/types"
	"facturo/pkg/logger"
)

// MaxAmount is the exclusive upper bound of the whole part.
// Amounts of one million units or more are rejected rather than
// silently extended with a millions band the original never produced.
const MaxAmount int64 = 1_000_000

var (
	// ErrAmountOutOfRange is returned for whole parts >= MaxAmount.
	ErrAmountOutOfRange = errors.New("amount out of range for words rendering")

	// ErrNegativeAmount is returned for negative input.
	ErrNegativeAmount = errors.New("amount must be non-negative")
)

var units = [...]string{
	"zéro", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf",
	"dix", "onze", "douze", "treize", "quatorze", "quinze",
	"seize", "dix-sept", "dix-huit", "dix-neuf",
}

var tens = [...]string{
	"", "dix", "vingt", "trente", "quarante", "cinquante",
	"soixante", "soixante-dix", "quatre-vingt", "quatre-vingt-dix",
}

// ToWords converts a non-negative amount into its French sentence,
// naming the currency with correct pluralization. The fractional part
// is rounded half up to centimes; rounding that carries to a full unit
// increments the whole part.
func ToWords(amount types.Money, currencyCode string) (string, error) {
	if amount.IsNegative() {
		return "", ErrNegativeAmount
	}

	whole, fraction := types.SplitUnits(amount)
	if whole >= MaxAmount {
		return "", fmt.Errorf("%w: %d", ErrAmountOutOfRange, whole)
	}

	currency := CurrencyName(currencyCode)
	wholeWords := integerWords(whole)

	var b strings.Builder
	b.WriteString(wholeWords)
	b.WriteString(" ")
	b.WriteString(currency)
	if pluralize(whole, wholeWords) {
		b.WriteString("s")
	}

	if fraction > 0 {
		fractionWords := integerWords(fraction)
		b.WriteString(" et ")
		b.WriteString(fractionWords)
		b.WriteString(" centime")
		if pluralize(fraction, fractionWords) {
			b.WriteString("s")
		}
	}

	return b.String(), nil
}

// pluralize reports whether the unit name takes an "s".
// Issued documents keep the singular after numbers ending in « un »
// ("vingt-un euro"), so the suffix decides, not just the magnitude.
func pluralize(n int64, rendered string) bool {
	return n > 1 && !strings.HasSuffix(rendered, "un")
}

// integerWords renders 0..999999 recursively by magnitude band.
func integerWords(n int64) string {
	switch {
	case n < 20:
		return units[n]

	case n < 100:
		word := tens[n/10]
		if r := n % 10; r > 0 {
			return word + "-" + units[r]
		}
		return word

	case n < 1000:
		word := "cent"
		if h := n / 100; h > 1 {
			word = units[h] + " cent"
		}
		if r := n % 100; r > 0 {
			return word + " " + integerWords(r)
		}
		return word

	default:
		word := "mille"
		if th := n / 1000; th > 1 {
			word = integerWords(th) + " mille"
		}
		if r := n % 1000; r > 0 {
			return word + " " + integerWords(r)
		}
		return word
	}
}

// legalPhrase wraps an amount rendering into the fixed closing clause
// printed at the bottom of a facture.
const legalPhrase = "Arrêté la présente facture à la somme de %s TTC"

// LegalSentence returns the legal closing sentence, or nil when the
// clause is disabled for the document. Rendering failures degrade to a
// plain numeric form inside the sentence and are logged, never
// propagated: the clause is supplementary, not load-bearing, for the
// document's validity.
func LegalSentence(ctx context.Context, amount types.Money, currencyCode string, enabled bool) *string {
	if !enabled {
		return nil
	}

	rendered, err := ToWords(amount, currencyCode)
	if err != nil {
		logger.Warn(ctx, "amount-in-words rendering degraded",
			"error", err,
			"amount", amount.String(),
			"currency", currencyCode)
		rendered = fmt.Sprintf("%s %s", amount.StringFixed(2), strings.ToUpper(strings.TrimSpace(currencyCode)))
	}

	sentence := fmt.Sprintf(legalPhrase, rendered)
	return &sentence
}
