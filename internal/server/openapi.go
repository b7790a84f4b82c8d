package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"path"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
)

// publicOperations are served without credentials.
var publicOperations = map[string]bool{"health": true}

var apiSecurity = []map[string][]string{{"bearerAuth": {}}, {"apiKeyAuth": {}}}

// registerOpenAPI serves the document under the base path. It is rendered on
// first request so every operation registered before then is included.
func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	render := sync.OnceValues(func() ([]byte, error) {
		oas := api.OpenAPI()
		decorateOpenAPI(oas)
		return json.Marshal(oas)
	})
	r.Get(path.Join(basePath, "openapi.json"), func(w http.ResponseWriter, _ *http.Request) {
		doc, err := render()
		if err != nil {
			http.Error(w, "openapi unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
}

// decorateOpenAPI declares both auth schemes and gives every operation the
// shared error envelope as its default response.
func decorateOpenAPI(oas *huma.OpenAPI) {
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{Type: "http", Scheme: "bearer", BearerFormat: "JWT"}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{Type: "apiKey", In: "header", Name: "X-Api-Key"}
	oas.Security = apiSecurity

	errResponse := &huma.Response{
		Description: "Error envelope",
		Content: map[string]*huma.MediaType{
			"application/json": {Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"}},
		},
	}
	for _, item := range oas.Paths {
		ops := []*huma.Operation{item.Get, item.Post, item.Put, item.Patch, item.Delete}
		for _, op := range ops {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = errResponse
			if publicOperations[op.OperationID] {
				op.Security = []map[string][]string{}
			} else {
				op.Security = apiSecurity
			}
		}
	}
}

var docsPage = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>TaskFlow API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <header style="font-family: sans-serif; padding: 0.75rem 1rem; border-bottom: 1px solid #ddd;">
    TaskFlow API. Send <code>Authorization: Bearer &lt;jwt&gt;</code> or <code>X-Api-Key</code> with every call except health.
  </header>
  <main id="ui"></main>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
  <script>SwaggerUIBundle({url: {{.SpecURL}}, dom_id: "#ui"});</script>
</body>
</html>
`))

func registerDocs(r chi.Router, basePath string) {
	data := struct{ SpecURL string }{SpecURL: path.Join("/", basePath, "openapi.json")}
	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = docsPage.Execute(w, data)
	})
}
