package auth

import (
	"encoding/json"
	"net/http"
	"sync"
)

// MetadataPath is the RFC 9728 protected-resource discovery endpoint.
const MetadataPath = "/.well-known/oauth-protected-resource"

// ProtectedResourceMetadata is the RFC 9728 document shape.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	ScopesSupported        []string `json:"scopes_supported"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
}

// MetadataHandler serves the protected-resource metadata document. The
// document is rendered once and cached for the process lifetime.
func MetadataHandler(resource, authServer string, scopes []string) http.Handler {
	var once sync.Once
	var body []byte

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			doc := ProtectedResourceMetadata{
				Resource:               resource,
				AuthorizationServers:   []string{authServer},
				ScopesSupported:        scopes,
				BearerMethodsSupported: []string{"header"},
			}
			body, _ = json.Marshal(doc)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}
