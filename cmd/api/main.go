package main

import (
	"go.uber.org/fx"

	"github.com/quartermaster-app/quartermaster/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
