package main

import (
	"os"

	"github.com/michalovjan/depalign/internal/app"
)

func main() {
	os.Exit(app.Main(os.Args))
}
