package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/mailreminder/internal/client/cli"
	"github.com/dmitrijs2005/mailreminder/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if err := cli.Run(ctx, cfg, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}
