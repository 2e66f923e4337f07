// Package ui prints the colored startup and shutdown output of the server.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// PrintBanner displays the startup banner.
func PrintBanner(version string) {
	fmt.Println()

	cyan := color.New(color.FgCyan, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	magenta := color.New(color.FgMagenta, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	cyan.Println("╔══════════════════════════════════════════════════════╗")

	art := []string{
		"██╗███████╗██╗██╗  ██╗ █████╗ ██╗",
		"██║██╔════╝██║╚██╗██╔╝██╔══██╗██║",
		"██║█████╗  ██║ ╚███╔╝ ███████║██║",
		"██║██╔══╝  ██║ ██╔██╗ ██╔══██║██║",
		"██║██║     ██║██╔╝ ██╗██║  ██║██║",
		"╚═╝╚═╝     ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝",
	}
	for _, line := range art {
		runes := []rune(line)
		half := len(runes) / 2
		cyan.Print("║  ")
		hiCyan.Print(string(runes[:half]))
		magenta.Print(string(runes[half:]))
		cyan.Println("                   ║")
	}

	cyan.Println("╠══════════════════════════════════════════════════════╣")

	cyan.Print("║  ")
	magenta.Print("MULTI-AGENT CHAT")
	dim.Print("  │  ")
	white.Printf("%-31s", version)
	cyan.Println("║")

	cyan.Println("╚══════════════════════════════════════════════════════╝")

	fmt.Println()
}
