package msg

// ClassifiedMsg is the JSON document published on the classifieds topic.
// Payment fields are omitted for ads of type "Free".
type ClassifiedMsg struct {
	ID          string   `json:"id"`
	CustomerID  string   `json:"customer_id"`
	CreatedAt   string   `json:"created_at"`
	Text        string   `json:"text"`
	AdType      string   `json:"ad_type"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	PaymentType string   `json:"payment_type,omitempty"`
	PaymentCost *float64 `json:"payment_cost,omitempty"`
}
