package ui

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)

	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)
	neonBlue    = color.New(color.FgHiCyan, color.Bold)

	methodPOST   = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET    = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
	methodPATCH  = color.New(color.BgHiYellow, color.FgBlack, color.Bold)
	methodDELETE = color.New(color.BgHiRed, color.FgBlack, color.Bold)
)

// AgentStatus summarizes one agent at startup.
type AgentStatus struct {
	Name         string
	DefaultModel string
	StoredKeys   int
}

type endpoint struct {
	method, path, summary string
}

var endpoints = []endpoint{
	{"POST", "/api/chat/:id", "Send a message"},
	{"POST", "/api/chat/:id/stream", "Send a message (SSE)"},
	{"GET", "/api/conversations", "List conversations"},
	{"GET", "/api/settings/api-keys", "List API keys"},
	{"GET", "/api/models", "List models"},
	{"POST", "/api/toolbox/text/:op", "Text conversion"},
	{"POST", "/api/toolbox/json/:op", "JSON tools"},
	{"GET", "/api/health", "Health check"},
	{"GET", "/metrics", "Prometheus metrics"},
}

// PrintStartupInfo prints the listen address, database and agent summary.
func PrintStartupInfo(addr, dbPath string, agents []AgentStatus) {
	fmt.Println()
	infoBadge.Print("[SERVER]")
	fmt.Print(" Listening on ")
	neonBlue.Printf("http://%s\n", addr)

	infoBadge.Print("[SERVER]")
	fmt.Print(" Database: ")
	accentText.Println(dbPath)

	for _, a := range agents {
		infoBadge.Print("[AGENT] ")
		fmt.Printf(" %-7s ", a.Name)
		mutedText.Printf("model:%s ", a.DefaultModel)
		if a.StoredKeys > 0 {
			successText.Printf("keys:%d\n", a.StoredKeys)
		} else {
			errorText.Println("keys:0 (requests must carry apiKey)")
		}
	}

	fmt.Println()
	printEndpoints()
}

func printEndpoints() {
	mutedText.Println("  ┌──────────────────────────────────────────────────────┐")
	for _, e := range endpoints {
		mutedText.Print("  │ ")
		printMethodBadge(e.method)
		fmt.Printf(" %-24s ", e.path)
		mutedText.Printf("%-20s", e.summary)
		mutedText.Println(" │")
	}
	mutedText.Println("  └──────────────────────────────────────────────────────┘")
	fmt.Println()
}

// printMethodBadge prints the HTTP method with appropriate color.
func printMethodBadge(method string) {
	label := fmt.Sprintf(" %-6s", method)
	switch method {
	case "POST":
		methodPOST.Print(label)
	case "GET":
		methodGET.Print(label)
	case "PATCH":
		methodPATCH.Print(label)
	case "DELETE":
		methodDELETE.Print(label)
	default:
		fmt.Print(label)
	}
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Println()
	warningBadge.Print("[SHUTDOWN]")
	warningText.Println(" Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Print(" OK ")
	fmt.Print(" ")
	successText.Println("Server stopped. Goodbye! 👋")
}
