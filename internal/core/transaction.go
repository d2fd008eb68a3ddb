package core

import (
	"errors"
	"strings"
)

const (
	// Payable is money the user owes (an outflow, "contas a pagar").
	Payable Type = "pagar"
	// Receivable is money owed to the user (an inflow, "contas a receber").
	Receivable Type = "receber"
)

// Payment methods accepted by the ledger.
const (
	MethodPix    = "Pix"
	MethodBoleto = "Boleto"
	MethodCard   = "Cartão"
	MethodCash   = "Dinheiro"
)

type (
	Type string

	// Transaction is the single entity of the ledger. Amount is always a
	// magnitude; the payable/receivable distinction lives in Type and the
	// display sign is derived at the presentation boundary.
	Transaction struct {
		ID          int64
		Name        string
		Date        Date
		Description string
		Category    string
		Method      string
		Installment string // free-form "current/total", e.g. "1/1"
		Paid        bool
		Amount      Money
		Type        Type
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrUnknownMethod    = errors.New("unknown payment method")
	ErrEmptyInstallment = errors.New("empty installment")
	ErrInvalidType      = errors.New("invalid transaction type")
)

// Methods lists the accepted payment methods in display order.
func Methods() []string {
	return []string{MethodPix, MethodBoleto, MethodCard, MethodCash}
}

func (t Type) Validate() error {
	switch t {
	case Payable, Receivable:
		return nil
	}
	return ErrInvalidType
}

// ParseType reads a wire-level type string ("pagar" or "receber").
func ParseType(s string) (Type, error) {
	t := Type(strings.TrimSpace(s))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (tx Transaction) Validate() error {
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if !knownMethod(tx.Method) {
		return ErrUnknownMethod
	}
	if strings.TrimSpace(tx.Installment) == "" {
		return ErrEmptyInstallment
	}
	return tx.Amount.Validate()
}

// SignedCents returns the amount with the display sign applied:
// negative for payables, positive for receivables.
func (tx Transaction) SignedCents() int64 {
	if tx.Type == Payable {
		return -tx.Amount.Cents
	}
	return tx.Amount.Cents
}

func knownMethod(m string) bool {
	switch m {
	case MethodPix, MethodBoleto, MethodCard, MethodCash:
		return true
	}
	return false
}

// Category vocabularies shown in the UI dropdowns. Payable transactions draw
// from the fixed and adverse expense lists, receivables from the revenue
// list. Membership is enforced at the create path by a lookup against the
// categories table, not here.
var (
	FixedExpenses = []string{
		"Salarios",
		"Folha de pagamento",
		"Vt",
		"Vr",
		"Internet",
		"Luz",
		"Agua",
		"Bebidas",
		"Papelaria",
		"Tafego pago",
		"Assinaturas",
	}
	AdverseExpenses = []string{"Equipamento"}
	Revenues        = []string{
		"Ações Previdenciarias",
		"Ações Securitarias",
		"Ações Judiciais",
		"Vendas de Processos",
		"Processos Administrativos",
		"Processo Dpvat",
	}
)

// CategoriesFor returns the category vocabulary for a transaction type.
func CategoriesFor(t Type) []string {
	if t == Payable {
		out := make([]string, 0, len(FixedExpenses)+len(AdverseExpenses))
		out = append(out, FixedExpenses...)
		out = append(out, AdverseExpenses...)
		return out
	}
	return append([]string(nil), Revenues...)
}
