package main

import (
	"log"

	"github.com/SatVerseX/mockmate-api/app"
)

func main() {
	app.MustInitDB()
	app.MustMigrate()
	app.InitRazorpay()
	router, err := app.NewRouter()
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	router.Run("0.0.0.0:8080")
}
