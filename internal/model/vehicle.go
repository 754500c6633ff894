package model

import (
	"strings"
	"time"
)

// VehicleSize drives pricing.  Values match vehicles.size and
// service_pricing.vehicle_size.
type VehicleSize string

const (
	SizeSmall      VehicleSize = "small"
	SizeMedium     VehicleSize = "medium"
	SizeLarge      VehicleSize = "large"
	SizeExtraLarge VehicleSize = "extra_large"
)

// VehicleSizes lists every size in ascending order.
var VehicleSizes = []VehicleSize{SizeSmall, SizeMedium, SizeLarge, SizeExtraLarge}

// ParseVehicleSize normalizes user input ("Extra Large", "extra-large")
// and reports whether it names a known size.
func ParseVehicleSize(s string) (VehicleSize, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	for _, v := range VehicleSizes {
		if string(v) == n {
			return v, true
		}
	}
	return "", false
}

// Vehicle is a customer's car.  Registration is the dedup key; UserID
// is nil for guest bookings until an account is linked.
type Vehicle struct {
	ID           uint64      // vehicles.id
	UserID       *uint64     // vehicles.user_id (nullable)
	Registration string      // vehicles.registration (normalized upper case, no spaces)
	Make         string      // vehicles.make
	Model        string      // vehicles.model
	Year         *int        // vehicles.year (nullable)
	Color        string      // vehicles.color
	Size         VehicleSize // vehicles.size
	CreatedAt    time.Time   // vehicles.created_at
}

// NormalizeRegistration strips whitespace and upper-cases a plate.
func NormalizeRegistration(reg string) string {
	return strings.ToUpper(strings.Join(strings.Fields(reg), ""))
}
