package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(DefaultVocabulary())
	require.NoError(t, err)
	return e
}

func TestExtractAmount(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name  string
		text  string
		want  int64
		found bool
	}{
		{
			name:  "prefix marker",
			text:  "Su compra por Gs. 150.000 fue aprobada",
			want:  150000,
			found: true,
		},
		{
			name:  "suffix marker",
			text:  "Monto 10,000.00 GS. a favor",
			want:  10000,
			found: true,
		},
		{
			name:  "prefix marker with padding",
			text:  "Debito por Gs.******75.000",
			want:  75000,
			found: true,
		},
		{
			name:  "marked numeral beats larger unmarked numeral",
			text:  "Boleta 123456 por Gs. 150.000",
			want:  150000,
			found: true,
		},
		{
			name:  "context word anchors the nearest candidate",
			text:  "Gs. 500 cuenta; Monto acreditado Gs. 150.000",
			want:  150000,
			found: true,
		},
		{
			name:  "no anchors keeps first candidate",
			text:  "Gs. 100 y Gs. 200",
			want:  100,
			found: true,
		},
		{
			name:  "fallback grouped numeral without marker",
			text:  "Se confirma la suma de 250.000 en su favor",
			want:  250000,
			found: true,
		},
		{
			name:  "fallback long digit run without marker",
			text:  "Operacion por 150000 confirmada",
			want:  150000,
			found: true,
		},
		{
			name: "account number vetoed in fallback",
			text: "Su cuenta 123456 fue actualizada",
		},
		{
			name: "short digit run ignored in fallback",
			text: "Codigo 123 de verificacion",
		},
		{
			name: "no numerals",
			text: "Aviso de mantenimiento programado",
		},
		{
			name: "empty text",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.ExtractAmount(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAmountPrefersMarkedOverFallback(t *testing.T) {
	e := newTestExtractor(t)

	// The card number is amount-like for the fallback scan, but a marked
	// candidate exists, so the fallback tier must never run.
	got, ok := e.ExtractAmount("Compra con tarjeta 4444555566667777 por Gs. 98.000")
	require.True(t, ok)
	assert.Equal(t, int64(98000), got)
}

func TestExtractAmountWithLengthChangingLowercase(t *testing.T) {
	e := newTestExtractor(t)

	// 'İ' grows by a byte when lowered; anchor distances must still line up
	// with candidate offsets.
	got, ok := e.ExtractAmount("İİİİİİİİ Monto acreditado Gs. 150.000 y Gs. 999.999")
	require.True(t, ok)
	assert.Equal(t, int64(150000), got)

	// Same for the account-word veto window in the fallback tier.
	_, ok = e.ExtractAmount("İİİİİİİİ Su cuenta 123.456 fue actualizada")
	assert.False(t, ok)
}

func TestExtractAmountAnchorTieKeepsEarlierCandidate(t *testing.T) {
	e := newTestExtractor(t)

	// "monto" sits exactly between both candidates; the earlier one wins.
	got, ok := e.ExtractAmount("Gs. 100 monto y Gs. 200")
	require.True(t, ok)
	assert.Equal(t, int64(100), got)
}
