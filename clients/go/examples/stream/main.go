package main

import (
	"context"
	"fmt"
	"log"
	"os"

	rivetsum "github.com/rivetq/rivetsum/clients/go"
)

// Streams a file to the server in chunks, carrying the checksum state
// from one request to the next.
func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <file>", os.Args[0])
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read file: %v", err)
	}

	client := rivetsum.NewClient("http://localhost:8080")
	ctx := context.Background()

	impls, err := client.Implementations(ctx)
	if err != nil {
		log.Fatalf("Failed to query implementations: %v", err)
	}
	fmt.Printf("Server implementations: %v\n", impls)

	const chunk = 1 << 20
	for _, kind := range []string{"adler32", "crc32"} {
		var state *uint32
		for off := 0; off < len(data) || state == nil; off += chunk {
			end := off + chunk
			if end > len(data) {
				end = len(data)
			}
			res, err := client.Checksum(ctx, kind, data[off:end], state)
			if err != nil {
				log.Fatalf("Failed to checksum: %v", err)
			}
			state = &res.Value
		}
		fmt.Printf("%s %08x %s\n", kind, *state, os.Args[1])
	}
}
