// Package main は、goport コマンドラインツールのエントリーポイントです。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harakeishi/goport/cmd"
	"github.com/harakeishi/goport/internal/errors"
)

func main() {
	ctx := context.Background()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.NewAppErrorHandler().ExitCode(err))
	}
}
