package detect

import (
	"net/url"

	"github.com/ppiankov/claimwatch/internal/model"
)

// RouteResolver builds the opaque resolve targets attached to alerts.
// The engine does not interpret them.
type RouteResolver interface {
	List(t model.ClaimType) string
	Claim(t model.ClaimType, id string) string
}

// DefaultRoutes mirrors the billing app's page layout
type DefaultRoutes struct{}

var listRoutes = map[model.ClaimType]string{
	model.ClaimTypeRAMQ:        "/claims/ramq",
	model.ClaimTypeFederal:     "/claims/federal",
	model.ClaimTypeOutProvince: "/claims/out-of-province",
	model.ClaimTypeDiplomatic:  "/claims/diplomatic",
	model.ClaimTypeInvoice:     "/dashboard/invoice",
}

// List returns the listing page for a claim type
func (DefaultRoutes) List(t model.ClaimType) string {
	if r, ok := listRoutes[t]; ok {
		return r
	}
	return "/claims"
}

// Claim returns the edit page for a single claim
func (r DefaultRoutes) Claim(t model.ClaimType, id string) string {
	return r.List(t) + "/" + url.PathEscape(id)
}
