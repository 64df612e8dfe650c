// local.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	api "github.com/Rigby35X/animals-proxy/api"
)

func main() {
	// Load .env files
	if err := godotenv.Load(".env.local"); err != nil {
		fmt.Println("Info: .env.local file not found, trying .env...")
		if err := godotenv.Load(); err != nil {
			fmt.Println("Info: No .env file found. Using system environment variables.")
		} else {
			fmt.Println("Info: Loaded environment variables from .env")
		}
	} else {
		fmt.Println("Info: Loaded environment variables from .env.local")
	}

	cfg, err := api.FromEnv()
	if err != nil {
		log.Fatalf("Exiting: %v", err)
	}

	server := api.NewServer(cfg)
	mux := http.NewServeMux()
	server.Register(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("\n--- Starting Local Development Server ---\n")
	fmt.Printf("Listening on: http://localhost:%s\n\n", port)
	fmt.Println("Available Endpoints:")
	fmt.Printf("- POST http://localhost:%s/api/cognito/webhook   (Cognito form submission webhook)\n", port)
	fmt.Printf("- GET  http://localhost:%s/api/cognito/entries   (Entries passthrough)\n", port)
	fmt.Printf("- POST http://localhost:%s/api/sync/run          (Sync all form entries)\n", port)
	fmt.Printf("- POST http://localhost:%s/api/sync/scan         (Sequential-id scan; ?start=&stopAfter=&max=)\n", port)
	fmt.Printf("- GET  http://localhost:%s/api/status            (Service status)\n", port)
	fmt.Println("\nCTRL+C to exit")

	log.Printf("Server listening on port %s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
