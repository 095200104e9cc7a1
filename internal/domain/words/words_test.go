package words

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturo/internal/core/types"
)

func TestToWords(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"zero", "0", "EUR", "zéro euro"},
		{"one", "1", "EUR", "un euro"},
		{"teens", "17", "EUR", "dix-sept euros"},
		{"simplified twenty-one", "21", "EUR", "vingt-un euro"},
		{"round hundred", "100", "EUR", "cent euros"},
		{"hundreds with remainder", "345", "EUR", "trois cent quarante-cinq euros"},
		{"round thousand usd", "1000", "USD", "mille dollars"},
		{"full sentence", "1234.50", "EUR", "mille deux cent trente-quatre euros et cinquante centimes"},
		{"thousands multiple", "12000", "EUR", "douze mille euros"},
		{"upper band", "999999", "EUR", "neuf cent quatre-vingt-dix-neuf mille neuf cent quatre-vingt-dix-neuf euros"},
		{"only centimes", "0.50", "EUR", "zéro euro et cinquante centimes"},
		{"single centime", "0.01", "EUR", "zéro euro et un centime"},
		{"centimes ending in un stay singular", "5.21", "EUR", "cinq euros et vingt-un centime"},
		{"rounding half up", "2.555", "EUR", "deux euros et cinquante-six centimes"},
		{"rounding carries to unit", "1.999", "EUR", "deux euros"},
		{"canadian dollar", "1", "CAD", "un dollar canadien"},
		{"cfa franc", "1", "FCFA", "un franc CFA"},
		// The simplified rule appends "s" to the full name; multiword
		// names pluralize only their last word.
		{"swiss franc", "40", "CHF", "quarante franc suisses"},
		{"pound sterling", "2", "GBP", "deux livre sterlings"},
		{"unknown code falls back to euro", "3", "XXX", "trois euros"},
		{"lowercase code accepted", "3", "eur", "trois euros"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToWords(types.MustMoney(tc.amount), tc.currency)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToWords_OutOfRange(t *testing.T) {
	_, err := ToWords(types.MustMoney("1000000"), "EUR")
	require.ErrorIs(t, err, ErrAmountOutOfRange)

	// 999999.999 rounds into the million band.
	_, err = ToWords(types.MustMoney("999999.999"), "EUR")
	require.ErrorIs(t, err, ErrAmountOutOfRange)

	// Largest representable amount still renders.
	_, err = ToWords(types.MustMoney("999999.99"), "EUR")
	require.NoError(t, err)
}

func TestToWords_Negative(t *testing.T) {
	_, err := ToWords(types.MustMoney("-1"), "EUR")
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestLegalSentence(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled returns nil", func(t *testing.T) {
		assert.Nil(t, LegalSentence(ctx, types.MustMoney("100"), "EUR", false))
	})

	t.Run("enabled wraps words", func(t *testing.T) {
		got := LegalSentence(ctx, types.MustMoney("100"), "EUR", true)
		require.NotNil(t, got)
		assert.Equal(t, "Arrêté la présente facture à la somme de cent euros TTC", *got)
		assert.Contains(t, *got, "facture")
	})

	t.Run("out of range degrades to numeric rendering", func(t *testing.T) {
		got := LegalSentence(ctx, types.MustMoney("2500000"), "EUR", true)
		require.NotNil(t, got)
		assert.Equal(t, "Arrêté la présente facture à la somme de 2500000.00 EUR TTC", *got)
	})
}

func TestCurrencyName(t *testing.T) {
	assert.Equal(t, "euro", CurrencyName("EUR"))
	assert.Equal(t, "dollar", CurrencyName("USD"))
	assert.Equal(t, "dollar canadien", CurrencyName("CAD"))
	assert.Equal(t, "franc CFA", CurrencyName("FCFA"))
	assert.Equal(t, "livre sterling", CurrencyName("GBP"))
	assert.Equal(t, "franc suisse", CurrencyName("CHF"))
	assert.Equal(t, "euro", CurrencyName("JPY"))
	assert.Equal(t, "euro", CurrencyName(""))
}
