package main

import "docindex/app"

func main() {
	app.Execute()
}
