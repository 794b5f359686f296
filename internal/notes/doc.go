// Package notes talks to the OneNote API on behalf of the signed-in user.
//
// Client sends every request through an oauth2.Transport backed by the
// auth Manager, so each call carries a current bearer token and a 401
// clears the stored session. RenderPage builds the page document from a
// text body. RecentTargets and Sender remember and reuse the last section.
package notes
