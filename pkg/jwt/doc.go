// Package jwt signs and verifies the API's RS256 access tokens.
//
//	svc, err := jwt.NewService(jwt.Config{
//	    PrivateKeyPath: "./keys/private.pem",
//	    Issuer:         "shepherd.forgo.software",
//	    ExpirationMins: 15,
//	})
//	token, err := svc.Sign(jwt.Claims{UserID: id, Role: jwt.RoleMember})
//	claims, err := svc.Validate(token)
//
// Validate only accepts RS256 tokens from the configured issuer that carry
// an expiry. Library errors are folded into the package sentinels, so
// callers match ErrTokenExpired rather than golang-jwt types. Refresh
// tokens are opaque and handled by the service layer.
package jwt
