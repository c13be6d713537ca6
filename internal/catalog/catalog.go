// Package catalog holds the static component catalog and the mapping from
// catalog categories to build slots.
package catalog

import "strings"

// Slot is one of the eight component slots a build can hold.
type Slot string

const (
	SlotCPU         Slot = "cpu"
	SlotGPU         Slot = "gpu"
	SlotMotherboard Slot = "motherboard"
	SlotRAM         Slot = "ram"
	SlotStorage     Slot = "storage"
	SlotPSU         Slot = "psu"
	SlotCase        Slot = "case"
	SlotCooling     Slot = "cooling"
)

// Slots lists every build slot in display order.
var Slots = []Slot{
	SlotCPU, SlotGPU, SlotMotherboard, SlotRAM,
	SlotStorage, SlotPSU, SlotCase, SlotCooling,
}

// Component is a purchasable catalog entry. The same shape is embedded into
// builds, cart line items, and order line items as a snapshot: price changes
// to the catalog never retroactively affect persisted documents.
type Component struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Category string  `json:"category"`
}

// slotAliases maps every category string the storefront has ever emitted to
// its slot, legacy synonyms included.
var slotAliases = map[string]Slot{
	"cpu":           SlotCPU,
	"gpu":           SlotGPU,
	"graphics-card": SlotGPU,
	"motherboard":   SlotMotherboard,
	"ram":           SlotRAM,
	"memory":        SlotRAM,
	"storage":       SlotStorage,
	"psu":           SlotPSU,
	"power-supply":  SlotPSU,
	"case":          SlotCase,
	"cooling":       SlotCooling,
	"cpu-cooler":    SlotCooling,
	"fans":          SlotCooling,
}

// SlotFor maps a category to its build slot. ok is false for categories the
// catalog does not recognize.
func SlotFor(category string) (Slot, bool) {
	s, ok := slotAliases[strings.ToLower(strings.TrimSpace(category))]
	return s, ok
}

// NormalizeSlot is the total form of SlotFor: unrecognized categories are
// routed to the storage slot. That fallback is a compatibility requirement of
// the storefront, not a guess — callers that need to distinguish unknown
// categories use SlotFor directly.
func NormalizeSlot(category string) Slot {
	if s, ok := SlotFor(category); ok {
		return s
	}
	return SlotStorage
}

// items is the static catalog. The storefront treats the catalog as read-only
// reference data; there is no persistence behind it.
var items = []Component{
	{Name: "AMD Ryzen 7 7800X3D", Price: 399.00, ImageURL: "/images/components/ryzen-7-7800x3d.jpg", Category: "cpu"},
	{Name: "AMD Ryzen 5 7600", Price: 229.00, ImageURL: "/images/components/ryzen-5-7600.jpg", Category: "cpu"},
	{Name: "Intel Core i7-14700K", Price: 409.00, ImageURL: "/images/components/i7-14700k.jpg", Category: "cpu"},
	{Name: "Intel Core i5-14600K", Price: 319.00, ImageURL: "/images/components/i5-14600k.jpg", Category: "cpu"},
	{Name: "NVIDIA GeForce RTX 4070 Super", Price: 599.00, ImageURL: "/images/components/rtx-4070-super.jpg", Category: "graphics-card"},
	{Name: "NVIDIA GeForce RTX 4090", Price: 1599.00, ImageURL: "/images/components/rtx-4090.jpg", Category: "graphics-card"},
	{Name: "AMD Radeon RX 7800 XT", Price: 499.00, ImageURL: "/images/components/rx-7800-xt.jpg", Category: "graphics-card"},
	{Name: "ASUS ROG Strix B650E-F", Price: 289.00, ImageURL: "/images/components/rog-strix-b650e-f.jpg", Category: "motherboard"},
	{Name: "MSI MAG B760 Tomahawk", Price: 199.00, ImageURL: "/images/components/mag-b760-tomahawk.jpg", Category: "motherboard"},
	{Name: "Corsair Vengeance 32GB DDR5-6000", Price: 114.00, ImageURL: "/images/components/vengeance-32gb.jpg", Category: "memory"},
	{Name: "G.Skill Trident Z5 64GB DDR5-6400", Price: 229.00, ImageURL: "/images/components/trident-z5-64gb.jpg", Category: "memory"},
	{Name: "Samsung 990 Pro 2TB NVMe", Price: 169.00, ImageURL: "/images/components/990-pro-2tb.jpg", Category: "storage"},
	{Name: "WD Black SN850X 1TB NVMe", Price: 89.00, ImageURL: "/images/components/sn850x-1tb.jpg", Category: "storage"},
	{Name: "Corsair RM850x 850W Gold", Price: 139.00, ImageURL: "/images/components/rm850x.jpg", Category: "power-supply"},
	{Name: "Seasonic Focus GX-750 750W", Price: 109.00, ImageURL: "/images/components/focus-gx-750.jpg", Category: "power-supply"},
	{Name: "Fractal Design North", Price: 129.00, ImageURL: "/images/components/fractal-north.jpg", Category: "case"},
	{Name: "Lian Li O11 Dynamic Evo", Price: 149.00, ImageURL: "/images/components/o11-dynamic-evo.jpg", Category: "case"},
	{Name: "Noctua NH-D15", Price: 109.00, ImageURL: "/images/components/nh-d15.jpg", Category: "cpu-cooler"},
	{Name: "Arctic Liquid Freezer III 360", Price: 129.00, ImageURL: "/images/components/liquid-freezer-iii.jpg", Category: "cpu-cooler"},
	{Name: "Noctua NF-A12x25 3-pack", Price: 89.00, ImageURL: "/images/components/nf-a12x25.jpg", Category: "fans"},
}

// List returns catalog components, optionally filtered by category. The filter
// matches both the raw category string and the slot it normalizes to, so
// "gpu" also returns components listed under "graphics-card".
func List(category string) []Component {
	if category == "" {
		out := make([]Component, len(items))
		copy(out, items)
		return out
	}

	want := NormalizeSlot(category)
	var out []Component
	for _, c := range items {
		if strings.EqualFold(c.Category, category) || NormalizeSlot(c.Category) == want {
			out = append(out, c)
		}
	}
	return out
}
