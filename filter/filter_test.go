package filter

import (
	"testing"

	"github.com/kashbor/bankmail-to-sheets/model"
)

func TestSenderAllowList(t *testing.T) {
	f, err := New(Options{Senders: []string{"alerts@banco.com.py", "Avisos@Otro.com"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		from string
		want bool
	}{
		{name: "exact match", from: "alerts@banco.com.py", want: true},
		{name: "display name around address", from: "Banco <alerts@banco.com.py>", want: true},
		{name: "case insensitive", from: "ALERTS@BANCO.COM.PY", want: true},
		{name: "second sender normalized", from: "avisos@otro.com", want: true},
		{name: "unknown sender", from: "spam@example.com", want: false},
		{name: "empty from", from: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Allows(model.RawMessage{From: tt.from})
			if got != tt.want {
				t.Errorf("Allows(from=%q) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestEmptyFilterAllowsAll(t *testing.T) {
	f, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows(model.RawMessage{From: "anyone@example.com", Subject: "anything"}) {
		t.Error("empty filter should allow every message")
	}
}

func TestIncludeFilters(t *testing.T) {
	f, err := New(Options{
		IncludeSubject: []string{"(?i)aviso"},
		IncludeBody:    []string{"Gs\\."},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		msg  model.RawMessage
		want bool
	}{
		{name: "subject matches", msg: model.RawMessage{Subject: "AVISO de compra"}, want: true},
		{name: "body matches", msg: model.RawMessage{Body: "Pago Gs. 150.000"}, want: true},
		{name: "neither matches", msg: model.RawMessage{Subject: "Promo", Body: "descuentos"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Allows(tt.msg); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExcludeFilters(t *testing.T) {
	f, err := New(Options{
		ExcludeSubject: []string{"(?i)promo"},
		ExcludeBody:    []string{"publicidad"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		msg  model.RawMessage
		want bool
	}{
		{name: "subject excluded", msg: model.RawMessage{Subject: "PROMO imperdible"}, want: false},
		{name: "body excluded", msg: model.RawMessage{Body: "contenido de publicidad"}, want: false},
		{name: "clean message passes", msg: model.RawMessage{Subject: "Aviso", Body: "Pago Gs. 150.000"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Allows(tt.msg); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIncludeExcludeMutuallyExclusive(t *testing.T) {
	_, err := New(Options{
		IncludeSubject: []string{"aviso"},
		ExcludeBody:    []string{"promo"},
	})
	if err == nil {
		t.Fatal("expected error for combined include and exclude filters")
	}
}

func TestInvalidPattern(t *testing.T) {
	_, err := New(Options{IncludeSubject: []string{"("}})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
