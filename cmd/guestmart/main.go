package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fsdevblog/guestmart/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stdout, "graceful shutdown")
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
