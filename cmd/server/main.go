package main

import "retentiond/internal/app/server"

func main() {
	server.Run()
}
