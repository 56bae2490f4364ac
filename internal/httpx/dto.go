package httpx

type CreateOrderRequest struct {
	CustomerID string           `json:"customer_id"`
	Date       string           `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Items      []OrderItemInput `json:"items"`
}

// OrderItemInput names a product and a quantity. There is deliberately no
// price field: unit prices come from the pricing source, never the client.
type OrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderResponse struct {
	ID         int64               `json:"id"`
	Number     string              `json:"number"`
	CustomerID string              `json:"customer_id"`
	Date       string              `json:"date"`
	Status     string              `json:"status"`
	Total      float64             `json:"total"`
	Items      []OrderItemResponse `json:"items"`
	CreatedAt  string              `json:"created_at"`
	UpdatedAt  string              `json:"updated_at"`
}

type OrderItemResponse struct {
	LineID      int64   `json:"line_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	MailQueueDepth int    `json:"mail_queue_depth"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
