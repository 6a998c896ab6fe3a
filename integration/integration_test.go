package integration

import (
	"os"

	"github.com/a-h/gymassistant/client"
)

// newClient connects to a running prompt service backed by Ollama.
func newClient() client.Client {
	url := os.Getenv("SERVER_URL")
	if url == "" {
		url = "http://localhost:8000"
	}
	return client.New(url)
}
