package main

import (
	"context"
	"os"

	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.Init()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
