package fastspring

type Contact struct {
	First   string `json:"first,omitempty"`
	Last    string `json:"last,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type AccountRequest struct {
	Contact  Contact `json:"contact"`
	Language string  `json:"language,omitempty"`
	Country  string  `json:"country,omitempty"`
}

type AccountResponse struct {
	Account string `json:"account"`
	Action  string `json:"action"`
	Result  string `json:"result"`
}

type Account struct {
	ID       string  `json:"id"`
	Account  string  `json:"account"`
	Contact  Contact `json:"contact"`
	Language string  `json:"language"`
	Country  string  `json:"country"`
	// URL is set on account management responses.
	URL string `json:"url"`
}

type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type SessionItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type SessionRequest struct {
	Account string            `json:"account,omitempty"`
	Items   []SessionItem     `json:"items"`
	Tags    map[string]string `json:"tags,omitempty"`
	Coupon  string            `json:"coupon,omitempty"`
}

type Session struct {
	ID       string        `json:"id"`
	Currency string        `json:"currency"`
	Expires  int64         `json:"expires"`
	Order    string        `json:"order"`
	Account  string        `json:"account"`
	Subtotal float64       `json:"subtotal"`
	Items    []SessionItem `json:"items"`
}
