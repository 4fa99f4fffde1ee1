package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind — дискриминатор закрытого типа-суммы Value.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
)

// Value — типизированное значение поля в Action Descriptor.
// Произвольные JSON-объекты и массивы сюда не попадают намеренно:
// мутирующие инструменты работают только со скалярными полями.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

func NullValue() Value            { return Value{kind: ValueNull} }
func StringValue(s string) Value  { return Value{kind: ValueString, str: s} }
func NumberValue(n float64) Value { return Value{kind: ValueNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: ValueBool, b: b} }

func (v Value) Kind() ValueKind { return v.kind }

// Str возвращает строковое значение (пустая строка для других kind).
func (v Value) Str() string { return v.str }

// Num возвращает числовое значение (0 для других kind).
func (v Value) Num() float64 { return v.num }

// String — детерминированный рендер для preview и audit.
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// Native разворачивает Value в примитив Go — для параметров SQL-запросов
// и снапшотов аудита.
func (v Value) Native() interface{} {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return v.num
	case ValueBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ValueOf конвертирует расшифрованный JSON-скаляр в Value.
// Объекты и массивы отклоняются: это защита от «протаскивания» произвольных
// структур мимо полевой валидации.
func ValueOf(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case bool:
		return BoolValue(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported field value type %T", raw)
	}
}

// entityFields — allow-list имен полей по таблицам. Дескриптор с полем вне
// списка считается некорректным входом и не доходит до guardrail.
var entityFields = map[string]map[string]bool{
	"clients": {
		"name": true, "email": true, "phone": true, "notes": true,
		"discount_pct": true, "hourly_rate": true, "balance": true,
	},
	"invoices": {
		"client_id": true, "amount": true, "currency": true,
		"due_date": true, "memo": true,
	},
	"emails": {
		"to": true, "subject": true, "body": true,
	},
	"sessions": {
		"client_id": true, "starts_at": true, "duration_min": true,
		"location": true, "notes": true,
	},
}

// ValidateFields сверяет набор полей с allow-list сущности.
func ValidateFields(table string, fields map[string]Value) error {
	allowed, ok := entityFields[table]
	if !ok {
		return fmt.Errorf("unknown entity table %q", table)
	}
	for name := range fields {
		if !allowed[name] {
			return fmt.Errorf("field %q is not writable on %s", name, table)
		}
	}
	return nil
}
