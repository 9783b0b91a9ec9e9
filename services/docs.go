package services

import (
	"net/http"

	"github.com/go-openapi/spec"
)

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Mumble API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "/apispec.json", dom_id: "#swagger-ui" });
  </script>
</body>
</html>
`

const (
	tagAuth     = "Authentication"
	tagUsers    = "Users"
	tagJournals = "Journals"
	tagOAuth    = "OAuth"
)

// BuildAPISpec describes every route as a Swagger 2.0 document
func BuildAPISpec() *spec.Swagger {
	swagger := &spec.Swagger{
		SwaggerProps: spec.SwaggerProps{
			Swagger:  "2.0",
			BasePath: "/",
			Schemes:  []string{"http", "https"},
			Consumes: []string{"application/json"},
			Produces: []string{"application/json"},
			Info: &spec.Info{
				InfoProps: spec.InfoProps{
					Title:       "Mumble API",
					Description: "Voice journal API: record, transcribe and analyse diary entries",
					Version:     "1.0.0",
				},
			},
			SecurityDefinitions: spec.SecurityDefinitions{
				"Bearer": bearerScheme(),
			},
			Tags: []spec.Tag{
				spec.NewTag(tagAuth, "Registration, login and tokens", nil),
				spec.NewTag(tagUsers, "Profile management", nil),
				spec.NewTag(tagJournals, "Voice journal entries", nil),
				spec.NewTag(tagOAuth, "Google sign-in", nil),
			},
			Definitions: spec.Definitions{
				"User":    userSchema(),
				"Journal": journalSchema(),
				"Error":   *objectSchema(map[string]spec.Schema{"error": *spec.StringProperty()}),
				"Success": *objectSchema(map[string]spec.Schema{"message": *spec.StringProperty()}),
			},
			Paths: &spec.Paths{Paths: map[string]spec.PathItem{}},
		},
	}

	paths := swagger.Paths.Paths
	paths["/api/auth/register"] = spec.PathItem{PathItemProps: spec.PathItemProps{Post: registerOperation()}}
	paths["/api/auth/login"] = spec.PathItem{PathItemProps: spec.PathItemProps{Post: loginOperation()}}
	paths["/api/auth/refresh"] = spec.PathItem{PathItemProps: spec.PathItemProps{Post: refreshOperation()}}
	paths["/api/auth/logout"] = spec.PathItem{PathItemProps: spec.PathItemProps{Post: secured(spec.NewOperation("logout").
		WithTags(tagAuth).
		WithSummary("Revoke refresh tokens and clear cookies").
		RespondsWith(http.StatusOK, refResponse("Logged out", "Success")))}}
	paths["/api/auth/me"] = spec.PathItem{PathItemProps: spec.PathItemProps{Get: currentUserOperation("authMe")}}

	paths["/api/users"] = spec.PathItem{PathItemProps: spec.PathItemProps{Get: secured(spec.NewOperation("listUsers").
		WithTags(tagUsers).
		WithSummary("List all users (admin only)").
		RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("Users").WithSchema(spec.ArrayProperty(userSummarySchema()))).
		RespondsWith(http.StatusForbidden, errorResponse("Admin access required")))}}
	paths["/api/users/me"] = spec.PathItem{PathItemProps: spec.PathItemProps{
		Get:    currentUserOperation("getProfile"),
		Put:    updateProfileOperation(),
		Delete: deleteAccountOperation(),
	}}

	paths["/api/journals"] = spec.PathItem{PathItemProps: spec.PathItemProps{
		Get:  listJournalsOperation(),
		Post: createJournalOperation(),
	}}
	paths["/api/journals/{id}"] = spec.PathItem{PathItemProps: spec.PathItemProps{
		Get: secured(spec.NewOperation("getJournal").
			WithTags(tagJournals).
			WithSummary("Get one journal").
			AddParam(journalIDParam()).
			RespondsWith(http.StatusOK, refResponse("Journal", "Journal")).
			RespondsWith(http.StatusNotFound, errorResponse("Journal not found"))),
		Delete: secured(spec.NewOperation("deleteJournal").
			WithTags(tagJournals).
			WithSummary("Delete a journal and its audio").
			AddParam(journalIDParam()).
			RespondsWith(http.StatusOK, refResponse("Deleted", "Success")).
			RespondsWith(http.StatusNotFound, errorResponse("Journal not found"))),
	}}
	paths["/api/journals/{id}/narration"] = spec.PathItem{PathItemProps: spec.PathItemProps{
		Get: secured(spec.NewOperation("narrateJournal").
			WithTags(tagJournals).
			WithSummary("Read the polished entry aloud").
			WithProduces("audio/mpeg").
			AddParam(journalIDParam()).
			RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("MP3 audio").WithSchema(new(spec.Schema).Typed("file", ""))).
			RespondsWith(http.StatusServiceUnavailable, errorResponse("Narration is not configured"))),
	}}

	paths["/api/oauth/google/login"] = spec.PathItem{PathItemProps: spec.PathItemProps{Get: spec.NewOperation("googleLogin").
		WithTags(tagOAuth).
		WithSummary("Redirect to Google's consent screen").
		RespondsWith(http.StatusFound, spec.NewResponse().WithDescription("Redirect to Google")).
		RespondsWith(http.StatusServiceUnavailable, errorResponse("Google OAuth is not configured"))}}
	paths["/api/oauth/google/callback"] = spec.PathItem{PathItemProps: spec.PathItemProps{Get: spec.NewOperation("googleCallback").
		WithTags(tagOAuth).
		WithSummary("Complete Google sign-in and redirect to the frontend with a token").
		AddParam(spec.QueryParam("code").Typed("string", "").AsRequired()).
		AddParam(spec.QueryParam("state").Typed("string", "").AsRequired()).
		RespondsWith(http.StatusFound, spec.NewResponse().WithDescription("Redirect to frontend")).
		RespondsWith(http.StatusBadRequest, errorResponse("Invalid state or code")).
		RespondsWith(http.StatusUnauthorized, errorResponse("Failed to authenticate with Google"))}}
	paths["/api/oauth/google/logout"] = spec.PathItem{PathItemProps: spec.PathItemProps{Get: spec.NewOperation("googleLogout").
		WithTags(tagOAuth).
		WithSummary("Clear auth cookies").
		RespondsWith(http.StatusOK, refResponse("Logged out", "Success"))}}

	return swagger
}

func bearerScheme() *spec.SecurityScheme {
	scheme := spec.APIKeyAuth("Authorization", "header")
	scheme.Description = "JWT as: Bearer <token>"
	return scheme
}

func secured(op *spec.Operation) *spec.Operation {
	return op.SecuredWith("Bearer").
		RespondsWith(http.StatusUnauthorized, errorResponse("JWT token is missing or invalid"))
}

func objectSchema(props map[string]spec.Schema) *spec.Schema {
	return new(spec.Schema).Typed("object", "").WithProperties(props)
}

func refResponse(description, definition string) *spec.Response {
	return spec.NewResponse().WithDescription(description).WithSchema(spec.RefSchema("#/definitions/" + definition))
}

func errorResponse(description string) *spec.Response {
	return refResponse(description, "Error")
}

func userSchema() spec.Schema {
	return *objectSchema(map[string]spec.Schema{
		"id":             *spec.StringProperty(),
		"username":       *spec.StringProperty(),
		"email":          *spec.StringProperty(),
		"is_admin":       *spec.BoolProperty(),
		"created_at":     *spec.DateTimeProperty(),
		"picture":        *spec.StringProperty(),
		"oauth_provider": *spec.StringProperty(),
	})
}

func userSummarySchema() *spec.Schema {
	return objectSchema(map[string]spec.Schema{
		"id":       *spec.StringProperty(),
		"username": *spec.StringProperty(),
		"email":    *spec.StringProperty(),
	})
}

func journalSchema() spec.Schema {
	mood := objectSchema(map[string]spec.Schema{
		"id":         *spec.StringProperty(),
		"mood":       *spec.StringProperty(),
		"confidence": *spec.Float64Property(),
	})
	topic := objectSchema(map[string]spec.Schema{
		"id":        *spec.StringProperty(),
		"topic":     *spec.StringProperty(),
		"relevance": *spec.Float64Property(),
	})
	return *objectSchema(map[string]spec.Schema{
		"id":         *spec.StringProperty(),
		"user_id":    *spec.StringProperty(),
		"title":      *spec.StringProperty(),
		"content":    *spec.StringProperty(),
		"raw_text":   *spec.StringProperty(),
		"audio_path": *spec.StringProperty(),
		"audio_mime": *spec.StringProperty(),
		"created_at": *spec.DateTimeProperty(),
		"updated_at": *spec.DateTimeProperty(),
		"moods":      *spec.ArrayProperty(mood),
		"topics":     *spec.ArrayProperty(topic),
	})
}

func authResultSchema() *spec.Schema {
	return objectSchema(map[string]spec.Schema{
		"message":       *spec.StringProperty(),
		"user":          *spec.RefSchema("#/definitions/User"),
		"token":         *spec.StringProperty(),
		"refresh_token": *spec.StringProperty(),
	})
}

func registerOperation() *spec.Operation {
	body := objectSchema(map[string]spec.Schema{
		"username": *spec.StringProperty(),
		"email":    *spec.StringProperty(),
		"password": *spec.StringProperty(),
	}).WithRequired("username", "email", "password")

	return spec.NewOperation("register").
		WithTags(tagAuth).
		WithSummary("Register a new user").
		AddParam(spec.BodyParam("body", body).AsRequired()).
		RespondsWith(http.StatusCreated, spec.NewResponse().WithDescription("User registered successfully").WithSchema(authResultSchema())).
		RespondsWith(http.StatusBadRequest, errorResponse("Invalid input data")).
		RespondsWith(http.StatusConflict, errorResponse("Username or email already exists"))
}

func loginOperation() *spec.Operation {
	body := objectSchema(map[string]spec.Schema{
		"email":    *spec.StringProperty(),
		"password": *spec.StringProperty(),
	}).WithRequired("email", "password")

	return spec.NewOperation("login").
		WithTags(tagAuth).
		WithSummary("Login with email and password").
		AddParam(spec.BodyParam("body", body).AsRequired()).
		RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("Login successful").WithSchema(authResultSchema())).
		RespondsWith(http.StatusBadRequest, errorResponse("Missing email or password")).
		RespondsWith(http.StatusUnauthorized, errorResponse("Invalid email or password"))
}

func refreshOperation() *spec.Operation {
	body := objectSchema(map[string]spec.Schema{"refresh_token": *spec.StringProperty()})

	return spec.NewOperation("refresh").
		WithTags(tagAuth).
		WithSummary("Exchange a refresh token (body or cookie) for an access token").
		AddParam(spec.BodyParam("body", body)).
		RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("New access token").
			WithSchema(objectSchema(map[string]spec.Schema{"token": *spec.StringProperty()}))).
		RespondsWith(http.StatusUnauthorized, errorResponse("Invalid refresh token"))
}

func currentUserOperation(id string) *spec.Operation {
	return secured(spec.NewOperation(id).
		WithTags(tagUsers).
		WithSummary("Get current user profile").
		RespondsWith(http.StatusOK, refResponse("User profile", "User")).
		RespondsWith(http.StatusNotFound, errorResponse("User not found")))
}

func updateProfileOperation() *spec.Operation {
	body := objectSchema(map[string]spec.Schema{
		"username":         *spec.StringProperty(),
		"email":            *spec.StringProperty(),
		"current_password": *spec.StringProperty(),
		"new_password":     *spec.StringProperty(),
	})

	return secured(spec.NewOperation("updateProfile").
		WithTags(tagUsers).
		WithSummary("Update username, email or password").
		AddParam(spec.BodyParam("body", body).AsRequired()).
		RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("Profile updated successfully").
			WithSchema(objectSchema(map[string]spec.Schema{
				"message": *spec.StringProperty(),
				"user":    *spec.RefSchema("#/definitions/User"),
			}))).
		RespondsWith(http.StatusBadRequest, errorResponse("Invalid input data")).
		RespondsWith(http.StatusConflict, errorResponse("Username or email already exists")))
}

func deleteAccountOperation() *spec.Operation {
	body := objectSchema(map[string]spec.Schema{"password": *spec.StringProperty()})

	return secured(spec.NewOperation("deleteAccount").
		WithTags(tagUsers).
		WithSummary("Delete the account with all journals").
		AddParam(spec.BodyParam("body", body)).
		RespondsWith(http.StatusOK, refResponse("Account deleted successfully", "Success")).
		RespondsWith(http.StatusBadRequest, errorResponse("Password is required")))
}

func listJournalsOperation() *spec.Operation {
	return secured(spec.NewOperation("listJournals").
		WithTags(tagJournals).
		WithSummary("List own journals, newest first").
		AddParam(spec.QueryParam("page").Typed("integer", "int32").WithDefault(1)).
		AddParam(spec.QueryParam("per_page").Typed("integer", "int32").WithDefault(defaultPerPage)).
		AddParam(spec.QueryParam("from").Typed("string", "").WithDescription("RFC3339 or YYYY-MM-DD")).
		AddParam(spec.QueryParam("to").Typed("string", "").WithDescription("RFC3339 or YYYY-MM-DD, inclusive")).
		RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("One page of journals").
			WithSchema(objectSchema(map[string]spec.Schema{
				"journals":     *spec.ArrayProperty(spec.RefSchema("#/definitions/Journal")),
				"total":        *spec.Int64Property(),
				"pages":        *spec.Int32Property(),
				"current_page": *spec.Int32Property(),
			}))).
		RespondsWith(http.StatusBadRequest, errorResponse("Invalid date filter")))
}

func createJournalOperation() *spec.Operation {
	return secured(spec.NewOperation("createJournal").
		WithTags(tagJournals).
		WithSummary("Upload a spoken entry (wav, mp3, m4a, ogg)").
		WithConsumes("multipart/form-data").
		AddParam(spec.FileParam("audio").AsRequired()).
		AddParam(spec.FormDataParam("title").Typed("string", "").AsRequired()).
		RespondsWith(http.StatusCreated, spec.NewResponse().WithDescription("Journal entry created successfully").
			WithSchema(objectSchema(map[string]spec.Schema{
				"message": *spec.StringProperty(),
				"journal": *spec.RefSchema("#/definitions/Journal"),
			}))).
		RespondsWith(http.StatusBadRequest, errorResponse("Invalid upload")).
		RespondsWith(http.StatusRequestEntityTooLarge, errorResponse("Audio file too large")))
}

func journalIDParam() *spec.Parameter {
	return spec.PathParam("id").Typed("string", "uuid")
}

// DocsEndpoints serves the API document and its UI
type DocsEndpoints struct {
	swagger *spec.Swagger
}

func NewDocsEndpoints() *DocsEndpoints {
	return &DocsEndpoints{swagger: BuildAPISpec()}
}

func (e *DocsEndpoints) SpecHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, e.swagger)
}

func (e *DocsEndpoints) UIHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(swaggerUIPage))
}
