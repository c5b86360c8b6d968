//go:build integration

package integration

import (
	"log"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}
	os.Exit(code)
}
