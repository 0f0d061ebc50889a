/*
Package authsdk holds the wire types of the PESU OAuth2 provider and a small
relying party client built on golang.org/x/oauth2.

The server writes errors with OAuth2Error (authorization and token
endpoints, {error, error_description}) and ResourceError (resource API,
{error, message}). Client code receives the same types back.

A relying party flow looks like:

	rp := authsdk.NewClient("https://auth.example", clientID, "", "https://app.example/cb",
		"profile:basic", "profile:academic")

	authURL, verifier := rp.AuthCodeURL(state)
	// redirect the browser to authURL, keep verifier in the app session

	tok, err := rp.Exchange(ctx, code, verifier)
	profile, err := rp.Profile(ctx, tok)

Profile returns only the fields the owner ticked on the consent screen.
*/
package authsdk
