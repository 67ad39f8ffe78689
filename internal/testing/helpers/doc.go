// Package helpers holds the request builders and assertions shared by the
// HTTP-level tests in tests/.
//
// A JWTHelper signs real RS256 tokens and can be passed to middleware.Auth:
//
//	jwtHelper := helpers.NewJWTHelper(t)
//	h := middleware.Auth(jwtHelper)(mux)
//	rec := httptest.NewRecorder()
//	h.ServeHTTP(rec, helpers.NewRequest(t, http.MethodPost, "/v1/prayers").
//		WithBody(body).
//		WithAuth(jwtHelper, member).
//		Build())
//	helpers.AssertProblemDetails(t, rec, http.StatusConflict, model.ErrCodeCapacityFull)
package helpers
