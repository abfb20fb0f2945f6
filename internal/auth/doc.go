// Package auth holds the dashboard's view of backend authentication.
//
// The backend issues HS256 access tokens carrying sub, tenant_id, role and
// exp. The dashboard never mints credentials; it reads these claims to learn
// which tenant a session belongs to and when the session must end.
//
// # Claims
//
// JWTReader decodes tokens. When backend.jwt_secret is configured the
// signature is verified as well; otherwise the backend's own 401 is the
// authority on validity.
//
// # Identity
//
// The session middleware in webadmin resolves the session cookie into an
// Identity and attaches it to the request context:
//
//	id := auth.FromContext(r.Context())
//	agents, err := client.ListAgents(ctx, backend.Credentials{Token: id.Token, TenantID: id.TenantID})
package auth
