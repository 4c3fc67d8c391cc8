package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"reelhouse/internal/server"
)

func main() {
	app := server.New()
	app.RegisterFiberRoutes()

	port, _ := strconv.Atoi(getEnv("PORT", "8080"))

	done := make(chan bool, 1)
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("[MAIN] Shutdown signal received")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[MAIN] Server shutdown error: %v", err)
		}
		done <- true
	}()

	log.Printf("[MAIN] Listening on :%d", port)
	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("[MAIN] Server error: %v", err)
	}

	<-done
	if err := app.Shutdown(); err != nil {
		log.Printf("[MAIN] Cleanup error: %v", err)
	}
	log.Println("[MAIN] Graceful shutdown complete")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
