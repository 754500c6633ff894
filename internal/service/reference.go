package service

import (
	"fmt"
	"time"

	"github.com/iliyamo/detailing-booking/internal/utils"
)

// MaxReferenceLength is the width of bookings.booking_reference.
const MaxReferenceLength = 20

// ReferenceGenerator builds booking references: prefix, the last eight
// digits of the epoch millisecond and four random base36 characters,
// e.g. L4D48213377K9QZ.
type ReferenceGenerator struct {
	prefix string
	now    func() time.Time
	random func(n int) (string, error)
}

func NewReferenceGenerator(prefix string) *ReferenceGenerator {
	return &ReferenceGenerator{prefix: prefix, now: time.Now, random: utils.RandomBase36}
}

func (g *ReferenceGenerator) Generate() (string, error) {
	suffix, err := g.random(4)
	if err != nil {
		return "", fmt.Errorf("reference suffix: %w", err)
	}
	ref := fmt.Sprintf("%s%08d%s", g.prefix, g.now().UnixMilli()%100_000_000, suffix)
	if len(ref) > MaxReferenceLength {
		return "", fmt.Errorf("reference %q exceeds %d characters", ref, MaxReferenceLength)
	}
	return ref, nil
}
