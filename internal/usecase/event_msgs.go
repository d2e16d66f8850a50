package usecase

// Sent by the gateway's settlement feed on Kafka.
type PaymentSettledMsg struct {
	GatewayRef string  `json:"gatewayRef"`
	SessionID  string  `json:"sessionId"`
	Amount     float64 `json:"amount"`
	SettledAt  string  `json:"settledAt"`
}
