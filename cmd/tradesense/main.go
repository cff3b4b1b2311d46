// Package main はTradeSense AI Trading APIゲートウェイのエントリーポイント。
package main

import (
	"github.com/nao1215/tradesense/internal/cli"
)

// ビルド時に -ldflags "-X main.version=..." で上書きされる。
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
