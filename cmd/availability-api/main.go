package main

// @title Availability API
// @version 1.0.0
// @description Availability slots with overlap detection and merge policies.
// @BasePath /api/v1
// @schemes http

func main() {
	Execute()
}
