package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "easyai",
		Short:         "agent simulation server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ServeCmd(), BakeCmd(), InspectCmd())
	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
