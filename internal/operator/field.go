// Package operator provides the field/operator matrix and typed comparison
// evaluation used by condition matching.
package operator

// Field identifies a transaction attribute a condition can test.
type Field string

// Condition fields.
const (
	FieldDescription     Field = "description"
	FieldCounterParty    Field = "counterparty"
	FieldIBAN            Field = "iban"
	FieldAnyField        Field = "any_field"
	FieldAmount          Field = "amount"
	FieldDate            Field = "date"
	FieldTransactionType Field = "transaction_type"
	FieldCategory        Field = "category"
)

// Kind is the value type a field carries.
type Kind int

// Field value kinds.
const (
	KindText Kind = iota
	KindAmount
	KindDate
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAmount:
		return "amount"
	case KindDate:
		return "date"
	case KindEnum:
		return "enum"
	}
	return "unknown"
}

var fieldKinds = map[Field]Kind{
	FieldDescription:     KindText,
	FieldCounterParty:    KindText,
	FieldIBAN:            KindText,
	FieldAnyField:        KindText,
	FieldAmount:          KindAmount,
	FieldDate:            KindDate,
	FieldTransactionType: KindEnum,
	FieldCategory:        KindEnum,
}

// Kind returns the value type of the field.
func (f Field) Kind() Kind {
	return fieldKinds[f]
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	_, ok := fieldKinds[f]
	return ok
}

// Fields returns all known fields in a stable order.
func Fields() []Field {
	return []Field{
		FieldDescription,
		FieldCounterParty,
		FieldIBAN,
		FieldAnyField,
		FieldAmount,
		FieldDate,
		FieldTransactionType,
		FieldCategory,
	}
}
