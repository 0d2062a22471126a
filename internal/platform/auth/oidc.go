package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// discoveryTimeout bounds the fetch of the discovery document.
const discoveryTimeout = 10 * time.Second

// OIDCProvider is the subset of an OpenID Connect discovery document that
// CareHub needs to validate tokens issued by an external identity provider.
type OIDCProvider struct {
	Issuer                   string   `json:"issuer"`
	AuthorizationEndpoint    string   `json:"authorization_endpoint"`
	TokenEndpoint            string   `json:"token_endpoint"`
	UserinfoEndpoint         string   `json:"userinfo_endpoint"`
	JWKSURI                  string   `json:"jwks_uri"`
	ScopesSupported          []string `json:"scopes_supported"`
	ResponseTypesSupported   []string `json:"response_types_supported"`
	GrantTypesSupported      []string `json:"grant_types_supported"`
	SubjectTypesSupported    []string `json:"subject_types_supported"`
	IDTokenSigningAlgValues  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethods []string `json:"token_endpoint_auth_methods_supported"`
}

// discoveryURL builds the well-known configuration URL for an issuer.
func discoveryURL(issuer string) string {
	return strings.TrimRight(issuer, "/") + "/.well-known/openid-configuration"
}

// NewOIDCProvider fetches the issuer's discovery document. Any compliant
// provider works: Keycloak, Auth0, Okta, Azure AD, Google. The document
// must name a jwks_uri and, when it carries an issuer, that issuer must
// match the one requested.
func NewOIDCProvider(issuerURL string) (*OIDCProvider, error) {
	client := &http.Client{Timeout: discoveryTimeout}
	resp, err := client.Get(discoveryURL(issuerURL))
	if err != nil {
		return nil, fmt.Errorf("fetch OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery endpoint returned status %d", resp.StatusCode)
	}

	var provider OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&provider); err != nil {
		return nil, fmt.Errorf("decode OIDC discovery document: %w", err)
	}

	if provider.JWKSURI == "" {
		return nil, fmt.Errorf("OIDC discovery document has no jwks_uri")
	}
	if provider.Issuer != "" && strings.TrimRight(provider.Issuer, "/") != strings.TrimRight(issuerURL, "/") {
		return nil, fmt.Errorf("issuer mismatch: requested %s, document names %s", issuerURL, provider.Issuer)
	}

	return &provider, nil
}

// JWKSKeyFunc returns a jwt.Keyfunc backed by the provider's JWKS
// endpoint, with the same caching and rotation handling as jwksKeyFunc.
func (p *OIDCProvider) JWKSKeyFunc() jwt.Keyfunc {
	return jwksKeyFunc(p.JWKSURI)
}
