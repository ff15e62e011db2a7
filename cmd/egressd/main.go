package main

import (
	"github.com/charmbracelet/log"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal("application terminated", "error", err)
	}
}
