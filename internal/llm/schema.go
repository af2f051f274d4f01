package llm

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is deliberately tolerant: nothing is required (absent
// fields get defaults during parsing), numerics may arrive as numbers or
// strings, and unknown keys are allowed. What it does reject is a payload
// that is structurally not an invoice (wrong top-level type, line items that
// are not objects).
func BuildInvoiceJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoiceNumber": map[string]any{"type": []string{"string", "null"}},
			"invoiceDate":   map[string]any{"type": []string{"string", "null"}},
			"dueDate":       map[string]any{"type": []string{"string", "null"}},
			"vendorName":    map[string]any{"type": []string{"string", "null"}},
			"customerName":  map[string]any{"type": []string{"string", "null"}},
			"currency":      map[string]any{"type": []string{"string", "null"}},
			"totalAmount":   numericProp(),
			"taxAmount":     numericProp(),
			"subtotal":      numericProp(),
			"lineItems": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": map[string]any{"type": []string{"string", "null"}},
						"quantity":    numericProp(),
						"unit":        map[string]any{"type": []string{"string", "null"}},
						"unitPrice":   numericProp(),
						"lineTotal":   numericProp(),
					},
				},
			},
		},
	}
}

func numericProp() map[string]any {
	return map[string]any{"type": []string{"number", "string", "null"}}
}
