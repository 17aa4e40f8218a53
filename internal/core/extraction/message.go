package extraction

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Message is the queue message that references one upload's extraction results.
// Either ResultJSONList (object keys) or ExtractionResult (inline JSON) must be set.
type Message struct {
	MerchantID       string          `json:"merchantId" validate:"required"`
	DocumentUploadID string          `json:"documentUploadId" validate:"required"`
	SourceFileName   string          `json:"sourceFileName" validate:"required"`
	FilePath         string          `json:"filePath"`
	DocumentType     string          `json:"documentType,omitempty" validate:"omitempty,oneof=invoice purchase_order grn"`
	ResultJSONList   []string        `json:"result_json_list" validate:"required_without=ExtractionResult,dive,required"`
	ExtractionResult json.RawMessage `json:"extractionResult,omitempty" validate:"required_without=ResultJSONList"`
}

// Validate checks the structural requirements of the message.
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid extraction message: %w", err)
	}
	return nil
}

// SourceFile is a raw extraction result ready for mapping.
type SourceFile struct {
	Name string
	Data []byte
}

// DisplayName returns the base name of the source file.
func (f SourceFile) DisplayName() string {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return "inline"
	}
	return path.Base(name)
}
