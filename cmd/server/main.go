package main

import (
	"log/slog"
	"os"

	"paie/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		slog.Error("payroll server stopped", "err", err)
		os.Exit(1)
	}
}
