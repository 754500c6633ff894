package model

// ServicePrice is one row of service_pricing.
type ServicePrice struct {
	ServiceID   string      `json:"service_id"`
	VehicleSize VehicleSize `json:"vehicle_size"`
	PricePence  int         `json:"price_pence"`
}
