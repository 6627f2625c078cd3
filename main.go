package main

import (
	"github.com/gin-gonic/gin"

	"github.com/LENINALX/vinculacion/api"
)

func main() {
	args := ParseArgs()
	if !args.Validate() {
		panic("missing arguments")
	}
	server, err := api.NewServer(args.ServerConfig)
	if err != nil {
		panic(err)
	}
	defer server.Close()
	server.Start()

	router := gin.Default()
	api.RegisterRoutes(router, server)
	if err := router.Run(args.ServerURL); err != nil {
		panic(err)
	}
}
