package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/cozy/blocknote/internal/app"
)

func main() {
	if err := app.Main(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "blocknote:", err)
		os.Exit(1)
	}
}
