package security

// In-memory client registry (replace with DB/config later)
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"checkout.read","checkout.write"}
	Enabled bool
}

var Clients = map[string]Client{
	"storefront-app":  {ID: "storefront-app", Secret: "storefront-app-secret", Perms: []string{"checkout.read", "checkout.write"}, Enabled: true},
	"seller-console":  {ID: "seller-console", Secret: "seller-console-secret", Perms: []string{"checkout.read"}, Enabled: true},
	"svc-back-office": {ID: "svc-back-office", Secret: "back-office-secret", Perms: []string{"checkout.read"}, Enabled: true},
}
