// Package httpclient はゲートウェイのHTTP APIを呼び出すJSONクライアントを提供する。
//
// 稼働中のゲートウェイに対するヘルスチェックなど、運用コマンドから使用する。
package httpclient
