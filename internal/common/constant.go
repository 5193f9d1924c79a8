package common

// AuthorizationHeaderName carries "Bearer <token>" on HTTP requests as an
// alternative to the token field of the JSON body.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the session token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "
