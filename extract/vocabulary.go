package extract

// Vocabulary is the immutable token configuration the engine matches against.
// All matching is case-insensitive; entries are plain tokens, not patterns.
type Vocabulary struct {
	// CurrencyMarkers mark an adjacent numeral as a monetary amount.
	CurrencyMarkers []string
	// DollarMarkers switch the detected currency from local to USD.
	DollarMarkers []string
	// ContextWords anchor the candidate ranking: the candidate closest to
	// any of these words wins.
	ContextWords []string
	// AccountWords veto a fallback numeral when one of them appears in the
	// 20 characters preceding it. Keeps account numbers out of the amounts.
	AccountWords []string

	DebitWords  []string
	CreditWords []string

	// LocalCurrency is returned whenever no dollar marker is present.
	LocalCurrency string
}

// DefaultVocabulary returns the Spanish/Guaraní vocabulary used for
// Paraguayan bank notifications.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		CurrencyMarkers: []string{"Gs.", "Gs", "₲", "PYG", "USD", "US$", "$"},
		DollarMarkers:   []string{"USD", "US$", "$"},
		ContextWords: []string{
			"monto", "importe", "acreditad", "transferenc", "pago",
			"depósito", "deposito", "crédito", "credito", "débito", "debito",
		},
		AccountWords: []string{"cuenta"},
		DebitWords: []string{
			"débito", "debito", "compra", "consumo", "pago", "retiro",
			"extracción", "extraccion", "gasto", "pago enviado",
			"gasto enviado", "pago realizado", "gasto realizado",
			"pago efectuado", "gasto efectuado", "enviado",
			"aviso de transferencia enviada",
		},
		CreditWords: []string{
			"abono", "acreditación", "acreditacion", "depósito", "deposito",
			"transferencia recibida", "pago recibido", "crédito", "credito",
			"pago acreditado", "gasto acreditado", "gasto recibido",
			"recibido", "devolucion", "devolución", "reembolso", "reintegro",
		},
		LocalCurrency: "PYG",
	}
}
