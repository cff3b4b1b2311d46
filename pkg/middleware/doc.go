// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// CORSポリシーの適用、リクエストID付与、構造化アクセスログ、パニックリカバリ、
// JWT認証トークンの検証など、ゲートウェイで共通して使用するミドルウェアを含む。
package middleware
