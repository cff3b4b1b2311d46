package middleware

import (
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// wildcard は全て許可を表す設定値。
const wildcard = "*"

// allMethods はAllowMethodsに "*" を指定した場合にプリフライトへ返すメソッド一覧。
var allMethods = []string{
	http.MethodDelete,
	http.MethodGet,
	http.MethodHead,
	http.MethodOptions,
	http.MethodPatch,
	http.MethodPost,
	http.MethodPut,
}

// safelistedHeaders はブラウザが常に送信を許可するリクエストヘッダー。
var safelistedHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Content-Type"}

// CORSPolicy はCORSミドルウェアのポリシー。
// AllowOrigins, AllowMethods, AllowHeaders の "*" は全て許可を意味する。
type CORSPolicy struct {
	// AllowOrigins はクロスオリジンアクセスを許可するオリジンの完全一致リスト。
	AllowOrigins []string
	// AllowCredentials がtrueの場合、Cookieや認証ヘッダー付きのリクエストを許可する。
	AllowCredentials bool
	// AllowMethods はプリフライトで許可するHTTPメソッド。
	AllowMethods []string
	// AllowHeaders はプリフライトで許可するリクエストヘッダー。
	AllowHeaders []string
	// ExposeHeaders はブラウザのスクリプトから参照可能にするレスポンスヘッダー。
	ExposeHeaders []string
	// MaxAge はプリフライト結果のキャッシュ期間。
	MaxAge time.Duration
}

// corsHandler はポリシーを事前計算した状態を保持する。
type corsHandler struct {
	origins         map[string]struct{}
	allowAllOrigins bool
	credentials     bool

	methods         map[string]struct{}
	allowAllMethods bool
	methodsValue    string

	headers         map[string]struct{}
	allowAllHeaders bool
	headersValue    string

	exposeValue string
	maxAgeValue string
}

// CORS は指定されたポリシーに従ってクロスオリジンリクエストを許可するGinミドルウェアを返す。
//
// 許可されたオリジンには Origin をそのまま返し、資格情報の送信を許可する。
// 許可されていないオリジンの通常リクエストはCORSヘッダーを付けずに処理を継続し、
// プリフライトリクエストは400で拒否する。
func CORS(policy CORSPolicy) gin.HandlerFunc {
	h := newCORSHandler(policy)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			h.preflight(c, origin)
			return
		}

		if h.isAllowedOrigin(origin) {
			h.setOriginHeaders(c, origin)
			if h.exposeValue != "" {
				c.Header("Access-Control-Expose-Headers", h.exposeValue)
			}
		}

		c.Next()
	}
}

func newCORSHandler(policy CORSPolicy) *corsHandler {
	h := &corsHandler{
		origins:     make(map[string]struct{}, len(policy.AllowOrigins)),
		credentials: policy.AllowCredentials,
		methods:     make(map[string]struct{}),
		headers:     make(map[string]struct{}),
		exposeValue: strings.Join(policy.ExposeHeaders, ", "),
		maxAgeValue: strconv.Itoa(int(policy.MaxAge.Seconds())),
	}

	for _, o := range policy.AllowOrigins {
		if o == wildcard {
			h.allowAllOrigins = true
			continue
		}
		h.origins[o] = struct{}{}
	}

	methods := allMethods
	if slices.Contains(policy.AllowMethods, wildcard) {
		h.allowAllMethods = true
	} else {
		methods = make([]string, 0, len(policy.AllowMethods))
		for _, m := range policy.AllowMethods {
			methods = append(methods, strings.ToUpper(strings.TrimSpace(m)))
		}
	}
	for _, m := range methods {
		h.methods[m] = struct{}{}
	}
	h.methodsValue = strings.Join(methods, ", ")

	if slices.Contains(policy.AllowHeaders, wildcard) {
		h.allowAllHeaders = true
	}
	headerNames := make([]string, 0, len(safelistedHeaders)+len(policy.AllowHeaders))
	for _, name := range append(slices.Clone(safelistedHeaders), policy.AllowHeaders...) {
		if name == wildcard {
			continue
		}
		canonical := http.CanonicalHeaderKey(strings.TrimSpace(name))
		key := strings.ToLower(canonical)
		if _, ok := h.headers[key]; ok {
			continue
		}
		h.headers[key] = struct{}{}
		headerNames = append(headerNames, canonical)
	}
	sort.Strings(headerNames)
	h.headersValue = strings.Join(headerNames, ", ")

	return h
}

func (h *corsHandler) isAllowedOrigin(origin string) bool {
	if h.allowAllOrigins {
		return true
	}
	_, ok := h.origins[origin]
	return ok
}

// setOriginHeaders はオリジン許可ヘッダーを設定する。
// 資格情報を許可する場合、ワイルドカード設定でも "*" ではなくOriginを返す。
func (h *corsHandler) setOriginHeaders(c *gin.Context, origin string) {
	if h.allowAllOrigins && !h.credentials {
		c.Header("Access-Control-Allow-Origin", wildcard)
	} else {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Add("Vary", "Origin")
	}
	if h.credentials {
		c.Header("Access-Control-Allow-Credentials", "true")
	}
}

// preflight はプリフライトリクエストに応答し、後続のハンドラーを実行しない。
func (h *corsHandler) preflight(c *gin.Context, origin string) {
	if !h.isAllowedOrigin(origin) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "許可されていないCORSオリジンです"})
		return
	}

	method := strings.ToUpper(c.GetHeader("Access-Control-Request-Method"))
	if _, ok := h.methods[method]; !ok && !h.allowAllMethods {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "許可されていないCORSメソッドです"})
		return
	}

	requested := c.GetHeader("Access-Control-Request-Headers")
	if !h.allowAllHeaders {
		for _, name := range strings.Split(requested, ",") {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			if _, ok := h.headers[key]; !ok {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "許可されていないCORSヘッダーです"})
				return
			}
		}
	}

	h.setOriginHeaders(c, origin)
	c.Header("Access-Control-Allow-Methods", h.methodsValue)
	if h.allowAllHeaders && requested != "" {
		c.Header("Access-Control-Allow-Headers", requested)
	} else {
		c.Header("Access-Control-Allow-Headers", h.headersValue)
	}
	c.Header("Access-Control-Max-Age", h.maxAgeValue)
	c.AbortWithStatus(http.StatusNoContent)
}
