package listener

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrInvalidPayload = errors.New("invalid event payload")

// Fastspring expands nested resources only when asked to, so references can
// arrive either as a bare id string or as an object.

type accountRef struct {
	ID string
}

func (a *accountRef) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &a.ID)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	a.ID = obj.ID
	return nil
}

type productRef struct {
	Product string
}

func (p *productRef) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &p.Product)
	}
	var obj struct {
		Product string `json:"product"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	p.Product = obj.Product
	return nil
}

type subscriptionRef struct {
	ID             string     `json:"id"`
	Sequence       int        `json:"sequence"`
	Display        string     `json:"display"`
	Product        productRef `json:"product"`
	BeginInSeconds int64      `json:"beginInSeconds"`
	NextInSeconds  int64      `json:"nextInSeconds"`
	IntervalUnit   string     `json:"intervalUnit"`
	IntervalLength int        `json:"intervalLength"`
}

func (s *subscriptionRef) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &s.ID)
	}
	type plain subscriptionRef
	return json.Unmarshal(b, (*plain)(s))
}

type payment struct {
	Type string `json:"type"`
}

type orderItem struct {
	Product      productRef       `json:"product"`
	Quantity     int              `json:"quantity"`
	Subscription *subscriptionRef `json:"subscription"`
}

type orderData struct {
	ID         string      `json:"id"`
	Account    accountRef  `json:"account"`
	Items      []orderItem `json:"items"`
	InvoiceURL string      `json:"invoiceUrl"`
	Total      float64     `json:"total"`
	Tax        float64     `json:"tax"`
	Subtotal   float64     `json:"subtotal"`
	Discount   float64     `json:"discount"`
	Currency   string      `json:"currency"`
	Payment    payment     `json:"payment"`
	Completed  bool        `json:"completed"`
}

type chargeCompletedData struct {
	Account      accountRef      `json:"account"`
	Subscription subscriptionRef `json:"subscription"`
	Order        orderData       `json:"order"`
}

type subscriptionData struct {
	ID             string     `json:"id"`
	Account        accountRef `json:"account"`
	Product        productRef `json:"product"`
	State          string     `json:"state"`
	Currency       string     `json:"currency"`
	Quantity       *int       `json:"quantity"`
	IntervalUnit   string     `json:"intervalUnit"`
	IntervalLength int        `json:"intervalLength"`
	Tags           tags       `json:"tags"`
}

// tags are free-form; only an object with a string "name" is meaningful.
type tags struct {
	Name string
}

func (t *tags) UnmarshalJSON(b []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	t.Name, _ = obj["name"].(string)
	return nil
}

func isNull(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
