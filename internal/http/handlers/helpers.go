package handlers

import "github.com/dropDatabas3/proxyjohn/internal/validation"

func validRedirectNow(d Deps, providerAllowsHTTP bool, target string) bool {
	return validation.ValidRedirect(d.WhitelistedRedirects, target, d.AllowHTTPRedirects || providerAllowsHTTP)
}
