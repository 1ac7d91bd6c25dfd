// Command simulate replays scripted customer conversations against a running
// API through the inbound webhook, so the pipeline can be exercised without
// a connected gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
)

type conversation struct {
	Phone    string
	Name     string
	Messages []string
}

var conversations = []conversation{
	{
		Phone: "5551999999999",
		Name:  "João Silva",
		Messages: []string{
			"Olá, tenho interesse em um imóvel",
			"Vocês tem apartamentos de 2 quartos?",
			"Qual o valor?",
		},
	},
	{
		Phone: "5551988888888",
		Name:  "Maria Santos",
		Messages: []string{
			"Bom dia! Vi o anúncio no ZAP",
			"Ainda está disponível?",
			"Posso agendar uma visita?",
		},
	},
	{
		Phone: "5551977777777",
		Name:  "Pedro Costa",
		Messages: []string{
			"Oi, quero saber mais sobre financiamento",
			"Qual a entrada mínima?",
		},
	},
}

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "base URL of the API")
	secret := flag.String("secret", os.Getenv("GATEWAY_WEBHOOK_SECRET"), "webhook shared secret")
	delay := flag.Duration("delay", 2*time.Second, "pause between messages")
	only := flag.String("lead", "", "phone of a single scripted lead to replay")
	phone := flag.String("phone", "", "send one custom message from this phone")
	name := flag.String("name", "Cliente Teste", "sender name for -phone")
	text := flag.String("text", "Olá!", "message body for -phone")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sim := newSimulator(*apiURL, *secret)

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("==> lead conversation simulator")
	fmt.Printf("    api: %s\n\n", *apiURL)

	if *phone != "" {
		if !sim.send(ctx, *phone, *name, *text) {
			os.Exit(1)
		}
		return
	}

	failed := 0
	for _, conv := range conversations {
		if *only != "" && conv.Phone != *only {
			continue
		}
		failed += sim.replay(ctx, conv, *delay)
		if ctx.Err() != nil {
			break
		}
	}

	if failed > 0 {
		color.New(color.FgRed).Printf("\n%d message(s) failed\n", failed)
		os.Exit(1)
	}
	color.New(color.FgGreen).Println("\nall conversations delivered")
}
