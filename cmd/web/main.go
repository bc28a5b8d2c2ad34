package main

import "hrportal_backend/internal/app"

func main() {
	app.Run()
}
