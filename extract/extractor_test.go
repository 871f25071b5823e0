package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractorValidation(t *testing.T) {
	_, err := NewExtractor(Vocabulary{LocalCurrency: "PYG"})
	assert.Error(t, err)

	_, err = NewExtractor(Vocabulary{CurrencyMarkers: []string{"Gs."}})
	assert.Error(t, err)
}

func TestDetectCurrency(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "usd word", text: "Compra por USD 100", want: "USD"},
		{name: "usd word lowercase", text: "compra por usd 100", want: "USD"},
		{name: "dollar sign", text: "Compra por $ 99", want: "USD"},
		{name: "us dollar marker", text: "Compra por US$ 99", want: "USD"},
		{name: "guarani marker", text: "Compra por Gs. 150.000", want: "PYG"},
		{name: "no marker", text: "Aviso de movimiento", want: "PYG"},
		{name: "empty", text: "", want: "PYG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.DetectCurrency(tt.text))
		})
	}
}

func TestClassifyMovement(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "purchase is debit", text: "Compra aprobada en POS", want: MovementDebit},
		{name: "withdrawal is debit", text: "Retiro en cajero automatico", want: MovementDebit},
		{name: "deposit is credit", text: "Deposito confirmado en su caja de ahorro", want: MovementCredit},
		{name: "incoming transfer is credit", text: "Transferencia recibida de tercero", want: MovementCredit},
		{name: "debit wins over credit", text: "Pago recibido", want: MovementDebit},
		{name: "case insensitive", text: "COMPRA APROBADA", want: MovementDebit},
		{name: "neither", text: "Actualizacion de datos personales", want: MovementUnknown},
		{name: "empty", text: "", want: MovementUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ClassifyMovement(tt.text))
		})
	}
}

func TestExtract(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("full notification", func(t *testing.T) {
		got := e.Extract("Pago realizado por Gs. 150.000 desde su cuenta")
		assert.Equal(t, Result{Amount: 150000, HasAmount: true, Currency: "PYG", Movement: MovementDebit}, got)
	})

	t.Run("dollar credit", func(t *testing.T) {
		got := e.Extract("Transferencia recibida por USD 1,250.00")
		assert.Equal(t, Result{Amount: 1250, HasAmount: true, Currency: "USD", Movement: MovementCredit}, got)
	})

	t.Run("no amount keeps zero sentinel", func(t *testing.T) {
		got := e.Extract("Compra rechazada")
		assert.False(t, got.HasAmount)
		assert.Zero(t, got.Amount)
		assert.Equal(t, MovementDebit, got.Movement)
	})

	t.Run("deterministic", func(t *testing.T) {
		text := "Monto acreditado Gs. 98.000"
		first := e.Extract(text)
		second := e.Extract(text)
		assert.Equal(t, first, second)
	})
}

func TestExtractorWithCustomVocabulary(t *testing.T) {
	e, err := NewExtractor(Vocabulary{
		CurrencyMarkers: []string{"R$", "BRL"},
		DollarMarkers:   []string{"US$"},
		ContextWords:    []string{"valor"},
		AccountWords:    []string{"conta"},
		DebitWords:      []string{"compra"},
		CreditWords:     []string{"deposito"},
		LocalCurrency:   "BRL",
	})
	require.NoError(t, err)

	got := e.Extract("Compra no valor de R$ 1.500,00")
	assert.Equal(t, Result{Amount: 1500, HasAmount: true, Currency: "BRL", Movement: MovementDebit}, got)
}
