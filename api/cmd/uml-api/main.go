package main

import (
	"log"
	"net/http"
	"strings"

	"uml-architect/api/internal/config"
	"uml-architect/api/internal/handle"
	"uml-architect/api/internal/uml"
	"uml-architect/api/internal/uml/gemini"
	"uml-architect/api/internal/uml/gpt"
)

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8000"
	}

	// Keys are read on every call, so rotating them needs no restart.
	engines := &uml.Engines{
		OpenAI: gpt.New(config.Env),
		Gemini: gemini.New(config.Env),
	}

	mux := http.NewServeMux()
	handle.New(engines).Register(mux)

	addr := ":" + cfg.Port
	log.Printf("uml-api listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
