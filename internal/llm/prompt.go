package llm

import "strings"

// BuildExtractionPrompt composes the fixed natural-language instruction sent
// alongside the document. Every provider uses the same prompt so that the
// response parses into one shape.
func BuildExtractionPrompt() string {
	parts := []string{
		"You are an expert invoice processing system. Extract all information from the provided invoice document and return it in JSON format.",
		"",
		"REQUIRED OUTPUT FORMAT (JSON):",
		`{`,
		`  "invoiceNumber": "string (required)",`,
		`  "invoiceDate": "string (ISO 8601 date)",`,
		`  "dueDate": "string (ISO 8601 date, optional)",`,
		`  "vendorName": "string (required)",`,
		`  "customerName": "string (optional)",`,
		`  "currency": "string (3-letter code, default: USD)",`,
		`  "totalAmount": "number (required)",`,
		`  "taxAmount": "number (optional)",`,
		`  "subtotal": "number (optional)",`,
		`  "lineItems": [`,
		`    {`,
		`      "description": "string (required)",`,
		`      "quantity": "number (required)",`,
		`      "unit": "string (optional)",`,
		`      "unitPrice": "number (required)",`,
		`      "lineTotal": "number (required)"`,
		`    }`,
		`  ]`,
		`}`,
		"",
		"RULES:",
		"1. Extract all amounts as numbers (not strings)",
		"2. If currency is not specified, use USD",
		"3. Format dates as YYYY-MM-DD",
		"4. If any field cannot be found, omit it or use null",
		"5. Validate that line item totals match quantity * unit price",
		"6. Return ONLY the JSON, no additional text",
		"",
		"INVOICE DATA TO EXTRACT:",
	}
	return strings.Join(parts, "\n")
}
