package gateway

import (
	"bytes"
	"html/template"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/tradesense/internal/config"
)

// openAPIPath はOpenAPIドキュメントを公開するパス。
const openAPIPath = "/openapi.json"

// openAPIVersion は出力するOpenAPI仕様のバージョン。
const openAPIVersion = "3.1.0"

// bearerSchemeName はJWT認証のセキュリティスキーム名。
const bearerSchemeName = "bearerAuth"

// openAPIDocument はOpenAPIドキュメントのうちゲートウェイが出力する部分。
type openAPIDocument struct {
	OpenAPI    string                                 `json:"openapi"`
	Info       openAPIInfo                            `json:"info"`
	Paths      map[string]map[string]openAPIOperation `json:"paths"`
	Components *openAPIComponents                     `json:"components,omitempty"`
}

type openAPIInfo struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

type openAPIOperation struct {
	Summary     string                     `json:"summary,omitempty"`
	OperationID string                     `json:"operationId"`
	Parameters  []openAPIParameter         `json:"parameters,omitempty"`
	Responses   map[string]openAPIResponse `json:"responses"`
	Security    []map[string][]string      `json:"security,omitempty"`
}

type openAPIParameter struct {
	Name     string            `json:"name"`
	In       string            `json:"in"`
	Required bool              `json:"required"`
	Schema   map[string]string `json:"schema"`
}

type openAPIResponse struct {
	Description string `json:"description"`
}

type openAPIComponents struct {
	SecuritySchemes map[string]openAPISecurityScheme `json:"securitySchemes"`
}

type openAPISecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme"`
	BearerFormat string `json:"bearerFormat"`
}

// apiDocs は登録済みの拡張ルートからOpenAPIドキュメントを組み立てる。
type apiDocs struct {
	mu      sync.RWMutex
	info    openAPIInfo
	secured bool
	paths   map[string]map[string]openAPIOperation
	swagger []byte
	redoc   []byte
}

// newAPIDocs はアプリケーションのメタデータからドキュメント生成元を作成する。
// タイトルは設定値をそのまま使用する。
func newAPIDocs(app config.AppConfig, secured bool) (*apiDocs, error) {
	d := &apiDocs{
		info: openAPIInfo{
			Title:       app.Title,
			Version:     app.Version,
			Description: app.Description,
		},
		secured: secured,
		paths:   make(map[string]map[string]openAPIOperation),
	}

	var err error
	if d.swagger, err = renderDocsPage(swaggerUITemplate, app.Title); err != nil {
		return nil, err
	}
	if d.redoc, err = renderDocsPage(redocTemplate, app.Title); err != nil {
		return nil, err
	}
	return d, nil
}

// ginParamPattern はGinのパスパラメータ（:id, *path）にマッチする。
var ginParamPattern = regexp.MustCompile(`[:*]([A-Za-z0-9_]+)`)

// addOperation は拡張ルートをドキュメントに追加する。
func (d *apiDocs) addOperation(method, ginPath, summary string) {
	method = strings.ToLower(method)
	path := ginParamPattern.ReplaceAllString(ginPath, "{$1}")

	op := openAPIOperation{
		Summary:     summary,
		OperationID: operationID(method, path),
		Responses: map[string]openAPIResponse{
			"200": {Description: "Successful Response"},
		},
	}
	for _, m := range ginParamPattern.FindAllStringSubmatch(ginPath, -1) {
		op.Parameters = append(op.Parameters, openAPIParameter{
			Name:     m[1],
			In:       "path",
			Required: true,
			Schema:   map[string]string{"type": "string"},
		})
	}
	if d.secured {
		op.Security = []map[string][]string{{bearerSchemeName: {}}}
		op.Responses["401"] = openAPIResponse{Description: "Unauthorized"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.paths[path] == nil {
		d.paths[path] = make(map[string]openAPIOperation)
	}
	d.paths[path][method] = op
}

// document は現時点のOpenAPIドキュメントを返す。
func (d *apiDocs) document() openAPIDocument {
	d.mu.RLock()
	defer d.mu.RUnlock()

	paths := make(map[string]map[string]openAPIOperation, len(d.paths))
	for p, ops := range d.paths {
		copied := make(map[string]openAPIOperation, len(ops))
		for m, op := range ops {
			copied[m] = op
		}
		paths[p] = copied
	}

	doc := openAPIDocument{
		OpenAPI: openAPIVersion,
		Info:    d.info,
		Paths:   paths,
	}
	if d.secured {
		doc.Components = &openAPIComponents{
			SecuritySchemes: map[string]openAPISecurityScheme{
				bearerSchemeName: {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
			},
		}
	}
	return doc
}

// operationID はメソッドとパスから一意な operationId を生成する。
// 例: get /api/v1/orders/{id} → get_api_v1_orders_id
func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(method)
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '{' || r == '}' || r == '-' || r == '.'
	}) {
		b.WriteByte('_')
		b.WriteString(seg)
	}
	return b.String()
}

// joinPath はグループのベースパスと相対パスを連結する。
func joinPath(base, rel string) string {
	if rel == "" || rel == "/" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}

// handleOpenAPI はOpenAPIドキュメントを返すハンドラを返す。
func (s *Server) handleOpenAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.docs.document())
	}
}

// handleSwaggerUI はSwagger UIのページを返すハンドラを返す。
func (s *Server) handleSwaggerUI() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", s.docs.swagger)
	}
}

// handleReDoc はReDocのページを返すハンドラを返す。
func (s *Server) handleReDoc() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", s.docs.redoc)
	}
}

// renderDocsPage はドキュメントページのHTMLを生成する。
func renderDocsPage(tmpl *template.Template, title string) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Title   string
		SpecURL string
	}{Title: title, SpecURL: openAPIPath}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var swaggerUITemplate = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html>
<head>
<link type="text/css" rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
<title>{{.Title}} - Swagger UI</title>
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
const ui = SwaggerUIBundle({
    url: {{.SpecURL}},
    dom_id: "#swagger-ui",
    layout: "BaseLayout",
    deepLinking: true,
    showExtensions: true,
    showCommonExtensions: true,
    presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
})
</script>
</body>
</html>
`))

var redocTemplate = template.Must(template.New("redoc").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}} - ReDoc</title>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body { margin: 0; padding: 0; }</style>
</head>
<body>
<redoc spec-url="{{.SpecURL}}"></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>
`))
