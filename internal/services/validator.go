package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/invoiceforge/backend/internal/models"
)

// ErrValidation can be used with errors.Is to detect payload validation
// failures; they map to 400 at the HTTP boundary.
var ErrValidation = errors.New("validation failed")

// invoiceSchema is the contract for both generate endpoints. Quantities may
// be fractional (hours); they just cannot be negative.
const invoiceSchema = `{
	"type": "object",
	"required": ["invoice_number", "client_name", "client_email", "due_date", "items"],
	"properties": {
		"invoice_number": {"type": "string", "minLength": 1},
		"client_name":    {"type": "string", "minLength": 1},
		"client_email":   {"type": "string", "minLength": 3, "pattern": "^[^@\\s]+@[^@\\s]+$"},
		"due_date":       {"type": "string", "minLength": 1},
		"items": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["description", "quantity", "unit_price"],
				"properties": {
					"description": {"type": "string", "minLength": 1},
					"quantity":    {"type": "number", "minimum": 0},
					"unit_price":  {"type": "number", "minimum": 0}
				}
			}
		}
	}
}`

// Validator checks invoice payloads against the compiled schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	schema, err := jsonschema.CompileString("https://invoiceforge.dev/schemas/invoice.request", invoiceSchema)
	if err != nil {
		return nil, fmt.Errorf("compile invoice schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// ValidateInvoice parses raw and rejects anything the schema forbids.
// Returns the decoded request on success.
func (v *Validator) ValidateInvoice(raw json.RawMessage) (*models.InvoiceRequest, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var req models.InvoiceRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return &req, nil
}
