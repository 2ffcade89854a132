package maino

import (
	"bytes"
	"encoding/json"
	"errors"

	"boletos/internal/core"
)

var ErrInvalidPage = errors.New("page is not a JSON object")

type object map[string]json.RawMessage

// DecodePage extracts the receivables of one page body.
//
// The list is read from the top-level "contas" key, falling back to
// "data.contas_a_receber". List entries that are not objects are skipped.
func DecodePage(body []byte) ([]core.Receivable, error) {
	var page object
	if err := json.Unmarshal(body, &page); err != nil || page == nil {
		return nil, ErrInvalidPage
	}
	items := page.list("contas")
	if len(items) == 0 {
		items = page.object("data").list("contas_a_receber")
	}
	out := make([]core.Receivable, 0, len(items))
	for _, raw := range items {
		var rec object
		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			continue
		}
		out = append(out, rec.receivable())
	}
	return out, nil
}

func (o object) receivable() core.Receivable {
	amount, defaulted := core.ParseAmount(o.amount("valor"))
	return core.Receivable{
		TitleNumber:     o.text("numero_titulo"),
		DocumentNumber:  o.text("numero_fatura"),
		DueDate:         o.text("data_vencimento"),
		Amount:          amount,
		AmountDefaulted: defaulted,
		AccrualDate:     o.text("data_competencia"),
		PaymentDate:     o.paymentDate("data_pagamento"),
		ClientName:      o.object("cliente").text("razao_social"),
		ProcessCode:     o.object("processo").text("codigo"),
	}
}

func (o object) list(key string) []json.RawMessage {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

func (o object) object(key string) object {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var sub object
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil
	}
	return sub
}

// text renders a field as a string. Missing and null fields are empty, other
// non-string values keep their JSON text.
func (o object) text(key string) string {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// paymentDate is nil only for an explicit null. A missing key yields an
// empty, non-nil date so the record does not count as open.
func (o object) paymentDate(key string) *string {
	raw, ok := o[key]
	if !ok {
		empty := ""
		return &empty
	}
	if isNull(raw) {
		return nil
	}
	s := o.text(key)
	return &s
}

// amount returns the raw "valor" for the normalizer; a missing key is 0.
func (o object) amount(key string) any {
	raw, ok := o[key]
	if !ok {
		return 0
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
