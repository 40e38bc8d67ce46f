package checkout

// Package is one purchasable credit bundle. The catalog is read-only
// configuration, not user data.
type Package struct {
	ID         string `json:"id"`
	PriceCents int64  `json:"price_cents"`
	Credits    int    `json:"credits"`
}

var catalog = map[string]Package{
	"small":  {ID: "small", PriceCents: 500, Credits: 50},
	"medium": {ID: "medium", PriceCents: 1000, Credits: 120},
	"large":  {ID: "large", PriceCents: 2000, Credits: 250},
}

// GetPackage resolves a package id against the static catalog.
func GetPackage(id string) (Package, bool) {
	pkg, ok := catalog[id]
	return pkg, ok
}

// Packages returns the catalog in a stable order.
func Packages() []Package {
	return []Package{catalog["small"], catalog["medium"], catalog["large"]}
}
