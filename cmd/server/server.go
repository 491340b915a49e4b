package main

import (
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/snakes/server"
)

type Server struct {
	router     *way.Router
	GameServer *server.GameServer
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	script := server.DefaultScript()
	if path := os.Getenv("ARENA_SCRIPT"); path != "" {
		loaded, err := server.LoadScriptFile(path)
		if err != nil {
			log.Fatalf("arena script: %v", err)
		}
		script = loaded
	}
	interval := 200 * time.Millisecond
	if v := os.Getenv("ARENA_FRAME_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("ARENA_FRAME_INTERVAL: %v", err)
		}
		interval = d
	}

	Server := Server{
		GameServer: server.NewGameServer(script, interval),
	}
	go Server.GameServer.Loop()
	Server.routes()

	arenaPort := os.Getenv("ARENA_PORT")
	if arenaPort == "" {
		arenaPort = "11000"
		log.Printf("Defaulting to arena port %s", arenaPort)
	}
	ln, err := net.Listen("tcp", ":"+arenaPort)
	if err != nil {
		log.Fatalln(err)
	}
	go func() {
		if err := Server.GameServer.Serve(ln); err != nil {
			log.Fatalln(err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("Defaulting to port %s", port)
	}
	log.Fatalln(http.ListenAndServe(":"+port, Server.router))
}
