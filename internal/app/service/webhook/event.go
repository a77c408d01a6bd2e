package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// AnyIdentity receives every event regardless of type.
const AnyIdentity = "Any"

var ErrMalformedBatch = errors.New("malformed webhook batch")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Event is a single element of a Fastspring webhook batch.
type Event struct {
	ID        string          `json:"id" validate:"required"`
	Type      string          `json:"type" validate:"required"`
	Live      bool            `json:"live"`
	Processed bool            `json:"processed"`
	Created   int64           `json:"created"`
	Data      json.RawMessage `json:"data"`
}

// CreatedAt converts the epoch millisecond creation stamp.
func (e *Event) CreatedAt() time.Time {
	if e.Created == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.Created).UTC()
}

// DecodeData unmarshals the event payload into v.
func (e *Event) DecodeData(v any) error {
	if len(e.Data) == 0 || bytes.Equal(e.Data, []byte("null")) {
		return fmt.Errorf("event %s: empty data", e.ID)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("event %s: decode data: %w", e.ID, err)
	}
	return nil
}

type Batch struct {
	Events []Event `json:"events" validate:"required,dive"`
}

// ParseBatch decodes and validates a webhook body. Any shape problem, including
// a single bad element, rejects the whole batch.
func ParseBatch(body []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	if b.Events == nil {
		return nil, fmt.Errorf("%w: events is required", ErrMalformedBatch)
	}
	if err := validate.Struct(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	return &b, nil
}

// SpecificIdentity maps a dotted event type to its listener identity:
// "subscription.charge.completed" -> "SubscriptionChargeCompleted".
func SpecificIdentity(eventType string) string {
	var sb strings.Builder
	for _, seg := range strings.Split(eventType, ".") {
		sb.WriteString(studly(seg))
	}
	return sb.String()
}

// CategoryIdentity is the studly first segment followed by "Any".
func CategoryIdentity(eventType string) string {
	first, _, _ := strings.Cut(eventType, ".")
	return studly(first) + AnyIdentity
}

func studly(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	var sb strings.Builder
	for _, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		sb.WriteRune(unicode.ToUpper(r))
		sb.WriteString(w[size:])
	}
	return sb.String()
}
