// Package httpapi serves the login, refresh and logout endpoints under /api/auth.
//
// Every route requires the X-Client-Platform header. Web clients receive the refresh
// token only as an HttpOnly SameSite=Strict cookie; app clients receive both tokens in
// the response body. Responses use the envelope
// {"success":bool,"status":int,"message":string,"data":any}.
package httpapi
