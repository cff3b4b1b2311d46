// Package gateway はTradeSense AI Trading APIのHTTPゲートウェイを提供する。
//
// ブラウザのフロントエンドから呼び出される唯一の入口であり、
// CORSポリシーの適用、APIメタデータ（OpenAPIドキュメント）の公開、
// ヘルスチェックを担当する。業務ロジックを持つハンドラーは
// Server.Handle で /api/v1 配下に登録する。
package gateway
