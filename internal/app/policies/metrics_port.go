package policies

// Metrics receives business counters from handlers.
type Metrics interface {
	BookingCreated()
	BookingConflict()
	BookingTransitioned(to string)
	OrderCreated()
	GatewayFailure(kind string)
	PaymentVerified(source string)
	SignatureRejected(source string)
}

type NopMetrics struct{}

func (NopMetrics) BookingCreated()            {}
func (NopMetrics) BookingConflict()           {}
func (NopMetrics) BookingTransitioned(string) {}
func (NopMetrics) OrderCreated()              {}
func (NopMetrics) GatewayFailure(string)      {}
func (NopMetrics) PaymentVerified(string)     {}
func (NopMetrics) SignatureRejected(string)   {}
