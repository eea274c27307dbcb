// Package classifieds decodes raw classified-ad payloads into one of two
// complete shapes: Free ads, or Priced ads carrying all payment fields.
package classifieds

// FreeAdType is the ad_type value of ads without payment information.
const FreeAdType = "Free"

// createdAtWidth is the length of "2006-01-02T15:04:05".
const createdAtWidth = 19

// Classified is either a Free or a Priced ad.
type Classified interface {
	Base() Ad
	classified()
}

// Ad holds the fields every classified carries.
type Ad struct {
	ID         string
	CustomerID string
	CreatedAt  string
	Text       string
	AdType     string
}

// Free is an ad of type FreeAdType. It has no payment fields.
type Free struct {
	Ad
}

// Priced is any non-free ad; all four payment fields are always set.
type Priced struct {
	Ad
	Price       float64
	Currency    string
	PaymentType string
	PaymentCost float64
}

func (f Free) Base() Ad   { return f.Ad }
func (p Priced) Base() Ad { return p.Ad }

func (Free) classified()   {}
func (Priced) classified() {}

// truncateCreatedAt keeps the first 19 characters, dropping fractional
// seconds and zone suffixes.
func truncateCreatedAt(s string) string {
	r := []rune(s)
	if len(r) <= createdAtWidth {
		return s
	}
	return string(r[:createdAtWidth])
}
