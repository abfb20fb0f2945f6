// Package backend is the dashboard's client for the Botfy REST API.
//
// Every call goes through Client.Do or Client.Upload, which resolve the
// base URL (always ending in /api), attach the bearer token and tenant id
// from Credentials, bound the call with a timeout and turn every failure
// into an *Error whose Message can be shown to the user as-is:
//
//	agents, err := client.ListAgents(ctx, backend.Credentials{Token: tok, TenantID: tid})
//	if backend.IsUnauthorized(err) {
//		// session is over: clear it and send the user to /login
//	}
//
// The typed wrappers (agents, documents, teams, WhatsApp, Telegram, billing,
// widget) only shape payloads; none of them keep state.
package backend
